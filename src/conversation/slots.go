package conversation

import (
	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/intent"
)

// orderSlots are the parameters carried in a pending order draft
var orderSlots = []string{
	intent.SlotCustomerName,
	intent.SlotGlassType,
	intent.SlotQuantity,
	intent.SlotDimensions,
	intent.SlotThickness,
}

// afterReply records what the assistant just did
func (s *Session) afterReply(topic string, awaiting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if topic != "" {
		s.currentTopic = topic
	}
	s.awaitingUserInput = awaiting
}

func (s *Session) pendingSlot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingSlot
}

func (s *Session) clearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
	s.awaitingSlot = ""
}

// fillSlots merges the turn into the pending order draft. A CREATE_ORDER
// turn starts or extends the draft and may correct filled values; a GENERAL
// turn that answers the pending question only fills empty slots and is
// promoted to CREATE_ORDER; a different request abandons the draft. The returned result carries the merged parameters.
func (s *Session) fillSlots(text string, r dialog.IntentResult) dialog.IntentResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Intent == dialog.IntentCreateOrder:
		if s.draft == nil {
			s.draft = map[string]any{}
		}
		mergeOrderSlots(s.draft, r.Parameters, true)

	case s.draft != nil && r.Intent == dialog.IntentGeneral:
		filled := mergeOrderSlots(s.draft, r.Parameters, false)
		if answerSlot(s.draft, s.awaitingSlot, text) {
			filled = true
		}
		if !filled {
			return r
		}
		r.Intent = dialog.IntentCreateOrder
		r.Topic = intent.TopicOrderCreation

	case s.draft != nil && abandonsDraft(r.Intent):
		s.draft = nil
		s.awaitingSlot = ""
		return r

	default:
		return r
	}

	params := make(map[string]any, len(r.Parameters)+len(s.draft))
	for k, v := range r.Parameters {
		params[k] = v
	}
	for k, v := range s.draft {
		params[k] = v
	}
	r.Parameters = params

	missing := intent.MissingSlots(params)
	r.RequiresUserInput = len(missing) > 0
	s.awaitingSlot = ""
	if len(missing) > 0 {
		s.awaitingSlot = missing[0]
	}
	return r
}

func abandonsDraft(i dialog.Intent) bool {
	switch i {
	case dialog.IntentSearchOrders, dialog.IntentSearchCustomers, dialog.IntentGeneratePDF:
		return true
	default:
		return false
	}
}

// mergeOrderSlots copies non-empty order slots from params into draft.
// Without overwrite, slots the draft already holds are kept.
func mergeOrderSlots(draft, params map[string]any, overwrite bool) bool {
	merged := false
	for _, k := range orderSlots {
		v, ok := params[k]
		if !ok || v == nil || v == "" || v == 0 {
			continue
		}
		if _, filled := draft[k]; filled && !overwrite {
			continue
		}
		draft[k] = v
		merged = true
	}
	return merged
}

// answerSlot reads a short reply to the pending question
func answerSlot(draft map[string]any, slot, text string) bool {
	if slot == "" {
		return false
	}
	if _, ok := draft[slot]; ok {
		return false
	}
	switch slot {
	case intent.SlotQuantity:
		if n, ok := intent.ParseQuantityAnswer(text); ok {
			draft[slot] = n
			return true
		}
	case intent.SlotCustomerName:
		if name, ok := intent.ParseCustomerAnswer(text); ok {
			draft[slot] = name
			return true
		}
	}
	return false
}
