package vtparse

import "github.com/ferroterm/ferroterm/internal/grid"

// parseSGR expands a CSI "m" parameter list into the full list of
// Actions it represents (spec §4.1: unlike a simplified single-action
// emission, every singleton/tuple in the parameter list produces its own
// Action). Empty params is equivalent to a bare reset.
func parseSGR(params []uint32) []grid.Action {
	if len(params) == 0 {
		return []grid.Action{{Kind: grid.ActionResetAttributes}}
	}

	var actions []grid.Action
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			actions = append(actions, grid.Action{Kind: grid.ActionResetAttributes})
		case p == 1:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBold, On: true})
		case p == 2:
			actions = append(actions, grid.Action{Kind: grid.ActionSetDim, On: true})
		case p == 3:
			actions = append(actions, grid.Action{Kind: grid.ActionSetItalic, On: true})
		case p == 4:
			actions = append(actions, grid.Action{Kind: grid.ActionSetUnderline, On: true})
		case p == 5 || p == 6:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBlink, On: true})
		case p == 7:
			actions = append(actions, grid.Action{Kind: grid.ActionSetReverse, On: true})
		case p == 9:
			actions = append(actions, grid.Action{Kind: grid.ActionSetStrikethrough, On: true})
		case p == 22:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBold, On: false}, grid.Action{Kind: grid.ActionSetDim, On: false})
		case p == 23:
			actions = append(actions, grid.Action{Kind: grid.ActionSetItalic, On: false})
		case p == 24:
			actions = append(actions, grid.Action{Kind: grid.ActionSetUnderline, On: false})
		case p == 25:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBlink, On: false})
		case p == 27:
			actions = append(actions, grid.Action{Kind: grid.ActionSetReverse, On: false})
		case p == 29:
			actions = append(actions, grid.Action{Kind: grid.ActionSetStrikethrough, On: false})
		case p >= 30 && p <= 37:
			actions = append(actions, grid.Action{Kind: grid.ActionSetForeground, Color: grid.NamedColorValue(grid.NamedColor(p - 30))})
		case p == 38:
			if c, adv, ok := parseExtendedColor(params, i); ok {
				actions = append(actions, grid.Action{Kind: grid.ActionSetForeground, Color: c})
				i += adv
			}
		case p == 39:
			actions = append(actions, grid.Action{Kind: grid.ActionSetForeground, Color: grid.DefaultColor})
		case p >= 40 && p <= 47:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBackground, Color: grid.NamedColorValue(grid.NamedColor(p - 40))})
		case p == 48:
			if c, adv, ok := parseExtendedColor(params, i); ok {
				actions = append(actions, grid.Action{Kind: grid.ActionSetBackground, Color: c})
				i += adv
			}
		case p == 49:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBackground, Color: grid.DefaultColor})
		case p >= 90 && p <= 97:
			actions = append(actions, grid.Action{Kind: grid.ActionSetForeground, Color: grid.NamedColorValue(grid.NamedColor(p - 90 + uint32(grid.BrightBlack)))})
		case p >= 100 && p <= 107:
			actions = append(actions, grid.Action{Kind: grid.ActionSetBackground, Color: grid.NamedColorValue(grid.NamedColor(p - 100 + uint32(grid.BrightBlack)))})
		default:
			// Unknown SGR parameter value: ignored (would be logged at debug level).
		}
	}

	return actions
}

// parseExtendedColor parses the "38;5;N" (256-palette) or "38;2;r;g;b"
// (direct RGB) tuples starting at params[i] (params[i] is 38 or 48).
// Returns the color, how many extra params it consumed, and whether it
// was well-formed.
func parseExtendedColor(params []uint32, i int) (grid.Color, int, bool) {
	if i+1 >= len(params) {
		return grid.Color{}, 0, false
	}
	switch params[i+1] {
	case 5:
		if i+2 >= len(params) {
			return grid.Color{}, 0, false
		}
		return grid.PaletteColor(uint8(params[i+2])), 2, true
	case 2:
		if i+4 >= len(params) {
			return grid.Color{}, 0, false
		}
		return grid.RGBColor(uint8(params[i+2]), uint8(params[i+3]), uint8(params[i+4])), 4, true
	default:
		return grid.Color{}, 0, false
	}
}
