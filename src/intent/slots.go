package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Slot names shared by the classifier, the engine and the executor
const (
	SlotQuantity     = "quantity"
	SlotGlassType    = "glassType"
	SlotDimensions   = "dimensions"
	SlotThickness    = "thickness"
	SlotCustomerName = "customerName"
	SlotDateRange    = "dateRange"
	SlotStatus       = "status"
	SlotOrderNumber  = "orderNumber"
)

// RequiredOrderSlots must be filled before an order can be created, in the
// order they are asked for.
var RequiredOrderSlots = []string{SlotCustomerName, SlotGlassType, SlotQuantity}

var (
	unitWords = `pieces?|pcs|units?|panels?|sheets?|panes?|windows?|doors?|mirrors?|lites?`

	quantityRe       = regexp.MustCompile(`(?i)\b(\d{1,5})\s+(?:[a-z-]+\s+){0,2}(?:` + unitWords + `)\b`)
	quantityLabelRe  = regexp.MustCompile(`(?i)\b(?:quantity|qty|amount)\s*(?:of|is|:|=)?\s*(\d{1,5})\b`)
	quantityWordRe   = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|fifteen|twenty|thirty|fifty|hundred|a dozen|dozen)\s+(?:[a-z-]+\s+){0,2}(?:` + unitWords + `)\b`)
	bareNumberRe     = regexp.MustCompile(`^\s*(\d{1,5})\s*[.!]?\s*$`)
	dimensionsRe     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:x|by|×|\*)\s*(\d+(?:\.\d+)?)\s*(mm|cm|m|in|inch(?:es)?|ft|feet|foot|")?`)
	thicknessRe      = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mm|millimet(?:er|re)s?)\b`)
	orderNumberRe    = regexp.MustCompile(`(?i)\border\s*(?:number|no\.?|num|#)\s*:?\s*#?\s*([a-z]*-?\d[\w-]*)`)
	orderCodeRe      = regexp.MustCompile(`(?i)\b(ord-?\d+)\b`)
	customerForRe    = regexp.MustCompile(`\b(?:for|from|customer|client)\s+((?:[A-Z][\w&'.-]*)(?:\s+(?:[A-Z][\w&'.-]*|&))*)`)
	customerNamedRe  = regexp.MustCompile(`(?i)\b(?:customer|client|company)\s+(?:named|called|is)\s+([\p{L}][\p{L}'&.-]*(?:\s+[\p{L}][\p{L}'&.-]*){0,2})`)
	customerAnswerRe = regexp.MustCompile(`(?i)^\s*(?:it'?s|it is|for|the customer is)?\s*([\p{L}][\p{L}'&.-]*(?:\s+[\p{L}][\p{L}'&.-]*){0,3})\s*[.!]?\s*$`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
	"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12, "fifteen": 15,
	"twenty": 20, "thirty": 30, "fifty": 50, "hundred": 100, "dozen": 12, "a dozen": 12,
}

// glass types in match order; longer phrases first
var glassTypes = []struct {
	canonical string
	re        *regexp.Regexp
}{
	{"double-glazed", regexp.MustCompile(`(?i)\bdouble[\s-]?glaz(?:ed|ing)\b`)},
	{"low-e", regexp.MustCompile(`(?i)\blow[\s-]?e\b`)},
	{"insulated", regexp.MustCompile(`(?i)\binsulat(?:ed|ing)\b`)},
	{"tempered", regexp.MustCompile(`(?i)\b(?:tempered|toughened)\b`)},
	{"laminated", regexp.MustCompile(`(?i)\blaminated\b`)},
	{"frosted", regexp.MustCompile(`(?i)\b(?:frosted|obscure|sandblasted)\b`)},
	{"tinted", regexp.MustCompile(`(?i)\btinted\b`)},
	{"reflective", regexp.MustCompile(`(?i)\breflective\b`)},
	{"wired", regexp.MustCompile(`(?i)\bwired\b`)},
	{"patterned", regexp.MustCompile(`(?i)\b(?:patterned|textured)\b`)},
	{"mirror", regexp.MustCompile(`(?i)\bmirrors?\b`)},
	{"annealed", regexp.MustCompile(`(?i)\bannealed\b`)},
	{"float", regexp.MustCompile(`(?i)\bfloat\b`)},
	{"clear", regexp.MustCompile(`(?i)\bclear\b`)},
}

var dateRanges = []struct {
	canonical string
	re        *regexp.Regexp
}{
	{"today", regexp.MustCompile(`(?i)\btoday\b`)},
	{"yesterday", regexp.MustCompile(`(?i)\byesterday\b`)},
	{"this_week", regexp.MustCompile(`(?i)\bthis\s+week\b`)},
	{"last_week", regexp.MustCompile(`(?i)\b(?:last|past|previous)\s+week\b`)},
	{"this_month", regexp.MustCompile(`(?i)\bthis\s+month\b`)},
	{"last_month", regexp.MustCompile(`(?i)\b(?:last|past|previous)\s+month\b`)},
}

var statuses = []struct {
	canonical string
	re        *regexp.Regexp
}{
	{"pending", regexp.MustCompile(`(?i)\b(?:pending|open)\s+orders?\b|\bstatus\s+(?:is\s+)?pending\b`)},
	{"in_production", regexp.MustCompile(`(?i)\bin\s+production\b|\bprocessing\b|\bin\s+progress\b`)},
	{"ready", regexp.MustCompile(`(?i)\bready\b`)},
	{"shipped", regexp.MustCompile(`(?i)\bshipped\b`)},
	{"delivered", regexp.MustCompile(`(?i)\bdelivered\b`)},
	{"completed", regexp.MustCompile(`(?i)\b(?:completed|finished|done)\s+orders?\b|\bstatus\s+(?:is\s+)?completed\b`)},
	{"cancelled", regexp.MustCompile(`(?i)\bcancel(?:l)?ed\b`)},
}

// words that look like a capitalized name after "for"/"from" but are not one
var notNames = map[string]bool{
	"This": true, "Last": true, "Next": true, "Today": true, "Yesterday": true,
	"Tomorrow": true, "Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
	"January": true, "February": true, "March": true, "April": true, "May": true,
	"June": true, "July": true, "August": true, "September": true, "October": true,
	"November": true, "December": true, "Me": true, "Us": true, "I": true,
	"The": true, "A": true, "An": true, "All": true, "Order": true, "Orders": true,
}

// ExtractSlots pulls order parameters out of free text. Missing slots are
// simply absent from the map.
func ExtractSlots(text string) map[string]any {
	slots := map[string]any{}
	if strings.TrimSpace(text) == "" {
		return slots
	}

	rest := text
	if m := dimensionsRe.FindStringSubmatchIndex(rest); m != nil {
		w, h := rest[m[2]:m[3]], rest[m[4]:m[5]]
		unit := ""
		if m[6] >= 0 {
			unit = normalizeUnit(rest[m[6]:m[7]])
		}
		slots[SlotDimensions] = strings.TrimSpace(w + "x" + h + " " + unit)
		// keep the dimension unit from reading as a thickness
		rest = rest[:m[0]] + " " + rest[m[1]:]
	}

	if m := thicknessRe.FindStringSubmatch(rest); m != nil {
		slots[SlotThickness] = m[1] + "mm"
	}

	if q, ok := extractQuantity(rest); ok {
		slots[SlotQuantity] = q
	}

	for _, g := range glassTypes {
		if g.re.MatchString(text) {
			slots[SlotGlassType] = g.canonical
			break
		}
	}

	if name := extractCustomer(text); name != "" {
		slots[SlotCustomerName] = name
	}

	for _, d := range dateRanges {
		if d.re.MatchString(text) {
			slots[SlotDateRange] = d.canonical
			break
		}
	}

	for _, s := range statuses {
		if s.re.MatchString(text) {
			slots[SlotStatus] = s.canonical
			break
		}
	}

	if m := orderNumberRe.FindStringSubmatch(text); m != nil {
		slots[SlotOrderNumber] = strings.ToUpper(m[1])
	} else if m := orderCodeRe.FindStringSubmatch(text); m != nil {
		slots[SlotOrderNumber] = strings.ToUpper(m[1])
	}

	return slots
}

func extractQuantity(text string) (int, bool) {
	if m := quantityLabelRe.FindStringSubmatch(text); m != nil {
		return atoiPositive(m[1])
	}
	if m := quantityRe.FindStringSubmatch(text); m != nil {
		return atoiPositive(m[1])
	}
	if m := quantityWordRe.FindStringSubmatch(text); m != nil {
		n, ok := numberWords[strings.ToLower(m[1])]
		return n, ok
	}
	return 0, false
}

// ParseQuantityAnswer reads a reply to "how many?": a bare number, a number
// word, or any phrasing ExtractSlots understands.
func ParseQuantityAnswer(text string) (int, bool) {
	if m := bareNumberRe.FindStringSubmatch(text); m != nil {
		return atoiPositive(m[1])
	}
	word := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!"))
	if n, ok := numberWords[word]; ok {
		return n, true
	}
	return extractQuantity(text)
}

// ParseCustomerAnswer reads a reply to "which customer?". Short answers are
// taken as the name itself.
func ParseCustomerAnswer(text string) (string, bool) {
	if name := extractCustomer(text); name != "" {
		return name, true
	}
	m := customerAnswerRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return titleCase(m[1]), true
}

func extractCustomer(text string) string {
	for _, m := range customerForRe.FindAllStringSubmatch(text, -1) {
		words := strings.Fields(m[1])
		for len(words) > 0 && notNames[words[0]] {
			words = words[1:]
		}
		if len(words) > 0 && !notNames[words[0]] {
			return strings.TrimRight(strings.Join(words, " "), ".,")
		}
	}
	if m := customerNamedRe.FindStringSubmatch(text); m != nil {
		return titleCase(strings.TrimRight(m[1], ".,"))
	}
	return ""
}

func normalizeUnit(u string) string {
	switch strings.ToLower(u) {
	case "in", "inch", "inches", `"`:
		return "in"
	case "ft", "feet", "foot":
		return "ft"
	default:
		return strings.ToLower(u)
	}
}

func atoiPositive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
