// Package main provides the gradstate CLI.
package main

func main() {
	Execute()
}
