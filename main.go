package main

import "github.com/dev-brewery/koinon-rms-sub010/cmd"

func main() {
	cmd.Execute()
}
