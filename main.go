package main

import "github.com/ValentinKolb/dTxn/cmd"

func main() {
	cmd.Execute()
}
