package utils

import (
	"image/color"
	"time"
)

type ColorName uint8

const (
	White ColorName = iota
	Red
)

func GetColor(name ColorName) (c color.RGBA) {
	switch name {
	case White:
		c = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	case Red:
		c = color.RGBA{R: 255, G: 0, B: 50, A: 0}
	}
	return
}

// SleepFor holds a plot window open
func SleepFor(milliseconds int) {
	time.Sleep(time.Duration(milliseconds) * time.Millisecond)
}
