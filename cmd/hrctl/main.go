package main

import "hr-backend/cmd/hrctl/cmd"

func main() {
	cmd.Execute()
}
