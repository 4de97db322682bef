package gui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"go-pianoroll/viewport"
)

type action int

const (
	actNone action = iota
	actQuit
	actPlay
	actStop
	actStart
	actRecord
	actTempoUp
	actTempoDown
	actZoomIn
	actZoomOut
	actLayout
	actAdd
	actDelete
	actDeselect
	actEarlier
	actLater
	actUp
	actDown
	actShorter
	actLonger
	actDrum
	actDrumMode
	actExport
)

// keyAction maps a freshly pressed key to what it does in the window host
func keyAction(k ebiten.Key, mods viewport.Modifiers) action {
	switch k {
	case ebiten.KeyQ:
		if mods.Ctrl {
			return actQuit
		}
	case ebiten.KeySpace:
		return actPlay
	case ebiten.KeyS:
		if mods.Ctrl {
			return actExport
		}
		return actStop
	case ebiten.KeyHome, ebiten.KeyDigit0:
		return actStart
	case ebiten.KeyR:
		return actRecord
	case ebiten.KeyBracketRight:
		return actTempoUp
	case ebiten.KeyBracketLeft:
		return actTempoDown
	case ebiten.KeyEqual, ebiten.KeyNumpadAdd:
		return actZoomIn
	case ebiten.KeyMinus, ebiten.KeyNumpadSubtract:
		return actZoomOut
	case ebiten.KeyTab:
		return actLayout
	case ebiten.KeyEnter:
		return actAdd
	case ebiten.KeyDelete, ebiten.KeyBackspace, ebiten.KeyX:
		return actDelete
	case ebiten.KeyEscape:
		return actDeselect
	case ebiten.KeyArrowLeft:
		if mods.Shift {
			return actShorter
		}
		return actEarlier
	case ebiten.KeyArrowRight:
		if mods.Shift {
			return actLonger
		}
		return actLater
	case ebiten.KeyArrowUp:
		return actUp
	case ebiten.KeyArrowDown:
		return actDown
	case ebiten.KeyD:
		if mods.Shift {
			return actDrumMode
		}
		return actDrum
	}
	return actNone
}

func modifiers() viewport.Modifiers {
	return viewport.Modifiers{
		Shift: ebiten.IsKeyPressed(ebiten.KeyShift),
		Ctrl:  ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta),
		Alt:   ebiten.IsKeyPressed(ebiten.KeyAlt),
	}
}

func button(b ebiten.MouseButton) viewport.Button {
	switch b {
	case ebiten.MouseButtonLeft:
		return viewport.ButtonLeft
	case ebiten.MouseButtonMiddle:
		return viewport.ButtonMiddle
	case ebiten.MouseButtonRight:
		return viewport.ButtonRight
	}
	return viewport.ButtonNone
}

// physicalSize converts a logical window size to the screen buffer size
func physicalSize(w, h int, scale float64) (int, int) {
	if !(scale > 0) {
		scale = 1
	}
	return int(float64(w)*scale + 0.5), int(float64(h)*scale + 0.5)
}
