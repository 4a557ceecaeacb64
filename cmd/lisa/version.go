package main

import "fmt"

// VersionCmd prints the build version
type VersionCmd struct{}

func (v *VersionCmd) Execute(_ []string) error {
	fmt.Println("lisa", version)
	return nil
}
