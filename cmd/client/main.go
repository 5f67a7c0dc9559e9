package main

import (
	"fieldsync/cmd/client/cmd"
)

func main() {
	cmd.Execute()
}
