package main

import "winewizard/internal/winewizard"

func main() {
	winewizard.Main()
}
