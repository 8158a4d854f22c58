package main

import "github.com/Pairs34/CerrahPasaRandevu/cmd"

func main() {
	cmd.Execute()
}
