package speech

// DriverActive reports whether d has a playback in flight.
func DriverActive(d *Driver) bool { return d.active() }
