package edit

import (
	"context"
	"unicode"
)

// HandleKey applies one key press. Navigation works in every phase: while
// editing, keys that leave the cell commit first and move only when the
// commit succeeded (or nothing changed).
func (c *Controller) HandleKey(ctx context.Context, key Key) (Outcome, error) {

	switch c.Phase() {
	case Committing:
		return Nothing, ErrCommitInProgress
	case Editing:
		return c.handleEditingKey(ctx, key)
	default:
		return c.handleIdleKey(key)
	}
}

func (c *Controller) handleIdleKey(key Key) (Outcome, error) {

	switch key.Kind {
	case KeyEnter:
		if err := c.Activate(EnterKey, 0); err != nil {
			return Nothing, err
		}
		return Activated, nil

	case KeyRune:
		if !unicode.IsPrint(key.Rune) {
			return Nothing, nil
		}
		if err := c.Activate(PrintableKey, key.Rune); err != nil {
			return Nothing, err
		}
		return Activated, nil

	case KeyEscape, KeyBackspace:
		return Nothing, nil
	}

	if c.Move(key.Kind) {
		return Moved, nil
	}
	return Nothing, nil
}

func (c *Controller) handleEditingKey(ctx context.Context, key Key) (Outcome, error) {

	switch key.Kind {
	case KeyEscape:
		if c.Cancel() {
			return Cancelled, nil
		}
		return Nothing, nil

	case KeyRune:
		c.lock.Lock()
		if c.session != nil && c.session.Phase == Editing {
			c.session.Pending += string(key.Rune)
		}
		c.lock.Unlock()
		return Typed, nil

	case KeyBackspace:
		c.lock.Lock()
		if c.session != nil && c.session.Phase == Editing {
			runes := []rune(c.session.Pending)
			if len(runes) > 0 {
				c.session.Pending = string(runes[:len(runes)-1])
			}
		}
		c.lock.Unlock()
		return Typed, nil
	}

	outcome, err := c.Commit(ctx)
	if err != nil {
		return outcome, err
	}

	movement := key.Kind
	if movement == KeyEnter {
		movement = KeyDown
	}
	c.Move(movement)

	return outcome, nil
}

// Move shifts focus by one cell. Tab and Shift+Tab wrap across rows. A target
// row that is not loaded leaves focus where it is.
func (c *Controller) Move(kind KeyKind) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	cols := len(c.cols.Visible())
	target := c.focus

	switch kind {
	case KeyUp:
		target.Row--
	case KeyDown:
		target.Row++
	case KeyLeft:
		target.Col--
	case KeyRight:
		target.Col++
	case KeyTab:
		target.Col++
		if target.Col >= cols {
			target.Col = 0
			target.Row++
		}
	case KeyShiftTab:
		target.Col--
		if target.Col < 0 {
			target.Col = cols - 1
			target.Row--
		}
	default:
		return false
	}

	return c.moveToLocked(target)
}
