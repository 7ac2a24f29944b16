package main

import "github.com/wenzapen/unicrawler/cmd"

func main() {
	cmd.Execute()
}
