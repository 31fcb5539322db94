/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing Espalier flows.

It allows developers to define conversation flows using a type-safe, fluent builder pattern
instead of relying on external YAML files. This is particularly useful for dynamic flow
generation, unit testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/aretw0/espalier/pkg/dsl"
	)

	func main() {
		b := dsl.New("onboarding")

		b.Add("start").
			Say("Welcome!").
			Go("ask_name")

		b.Add("ask_name").
			Ask("What is your name?", "name").
			Go("pick")

		b.Add("pick").
			Menu("What do you need, {{name}}?").
			Option("1", "Sales", "sales", "to_sales").
			Option("2", "Support", "support", "to_support")

		b.Add("to_sales").Transfer("sales", "Connecting you to sales.")
		b.Add("to_support").End("Check our help center first!")

		flow, err := b.Build()
		// ... hand flow to memory.NewProvider and espalier.New
		_ = flow
		_ = err
	}
*/
package dsl
