package main

import "github.com/iksnae/wa-history/cmd"

func main() {
	cmd.Execute()
}
