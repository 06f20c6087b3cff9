package cache

import "fmt"

// LastGenerationKey is where the organized view of the latest generation is kept.
// A nil department means the institution-wide run.
func LastGenerationKey(departmentID *uint) string {
	if departmentID == nil {
		return "timetable:last:all"
	}
	return fmt.Sprintf("timetable:last:dept:%d", *departmentID)
}

func LoginAttemptsKey(clientID string) string {
	return "ratelimit:login:" + clientID
}
