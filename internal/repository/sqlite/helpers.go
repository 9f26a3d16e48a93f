package sqlite

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
