package services

import "math"

// Users level on a square-root curve, subjects on a cube-root curve:
//
//	user level    = floor(sqrt(xp / 10)) + 1
//	subject level = floor(cbrt(xp / 5)) + 1
//
// Negative XP counts as zero, so levels never drop below 1.

// UserLevelFromXP returns the user level for cumulative xp.
func UserLevelFromXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	// largest n with 10·n² <= xp
	n := int64(math.Sqrt(float64(xp) / 10))
	for 10*(n+1)*(n+1) <= xp {
		n++
	}
	for n > 0 && 10*n*n > xp {
		n--
	}
	return int(n) + 1
}

// SubjectLevelFromXP returns the subject level for cumulative xp.
func SubjectLevelFromXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	// largest n with 5·n³ <= xp
	n := int64(math.Cbrt(float64(xp) / 5))
	for 5*(n+1)*(n+1)*(n+1) <= xp {
		n++
	}
	for n > 0 && 5*n*n*n > xp {
		n--
	}
	return int(n) + 1
}

// UserXPForNextLevel is the cumulative XP at which level+1 starts.
func UserXPForNextLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return l * l * 10
}

// SubjectXPForNextLevel is the cumulative XP at which subject level+1 starts.
func SubjectXPForNextLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return l * l * l * 5
}

// LevelProgress describes where xp sits between two level thresholds.
type LevelProgress struct {
	Level        int     `json:"level"`
	XP           int64   `json:"xp"`
	CurrentLevel int64   `json:"currentLevelXp"`
	NextLevel    int64   `json:"nextLevelXp"`
	Percent      float64 `json:"percent"`
}

func UserLevelProgress(xp int64) LevelProgress {
	level := UserLevelFromXP(xp)
	return buildProgress(xp, level, UserXPForNextLevel(level-1), UserXPForNextLevel(level))
}

func SubjectLevelProgress(xp int64) LevelProgress {
	level := SubjectLevelFromXP(xp)
	return buildProgress(xp, level, SubjectXPForNextLevel(level-1), SubjectXPForNextLevel(level))
}

func buildProgress(xp int64, level int, floor, next int64) LevelProgress {
	if level == 1 {
		floor = 0
	}
	if xp < 0 {
		xp = 0
	}
	pct := 0.0
	if span := next - floor; span > 0 {
		pct = math.Round(float64(xp-floor)/float64(span)*1000) / 10
	}
	return LevelProgress{Level: level, XP: xp, CurrentLevel: floor, NextLevel: next, Percent: pct}
}
