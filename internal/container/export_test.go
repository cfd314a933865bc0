package container

// SetFreeSpaceFunc replaces the free space probe used by Compact.
func (c *Container) SetFreeSpaceFunc(fn func(string) (uint64, error)) {
	c.statfs = fn
}
