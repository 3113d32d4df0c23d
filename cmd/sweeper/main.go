package main

import "github.com/JakeFAU/soft404-sweeper/cmd"

func main() {
	cmd.Execute()
}
