// Package main provides the entry point for the topshop CLI.
//
// topshop classifies storefront domains: whether a store runs on a given
// e-commerce platform, and whether it sells a target product category.
// Results are kept in a local record store for listing and ranking.
//
// Usage:
//
//	topshop classify <domain>...
//	topshop classify --list domains.txt --region europe
//	topshop rank europe
//
// See --help for all available options.
package main

func main() {
	Execute()
}
