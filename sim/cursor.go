package sim

// Cursor tracks how many bars of a series are visible. Once a series is
// loaded Visible stays within [1, Total].
type Cursor struct {
	visible int
	total   int
}

// Reset points the cursor at the first bar of a series of total bars.
func (c *Cursor) Reset(total int) {
	c.total = total
	c.visible = 0
	if total > 0 {
		c.visible = 1
	}
}

// Forward reveals one more bar. It returns false at the last bar.
func (c *Cursor) Forward() bool {
	if c.visible >= c.total {
		return false
	}
	c.visible++
	return true
}

// Backward hides the newest bar. It returns false at the first bar.
func (c *Cursor) Backward() bool {
	if c.visible <= 1 {
		return false
	}
	c.visible--
	return true
}

func (c Cursor) Visible() int { return c.visible }
func (c Cursor) Total() int   { return c.total }

// Index is the position of the newest visible bar, or -1 with nothing loaded.
func (c Cursor) Index() int { return c.visible - 1 }

func (c Cursor) AtEnd() bool { return c.total > 0 && c.visible >= c.total }
