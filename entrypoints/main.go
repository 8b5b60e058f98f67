package main

import (
	"github.com/drive-gallery/gallery/cmd"
)

func main() {
	cmd.Execute()
}
