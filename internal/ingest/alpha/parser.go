package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/reprank/internal/models"
)

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setDataRe matches: 1;115;8;1
	setDataRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// warmupRe matches: WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	// columnHeaderRe matches: #;KG;REPS;RIR
	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// parseState accumulates sessions while scanning an export line by line.
type parseState struct {
	sessions []models.AlphaSession
	session  *models.AlphaSession
	exercise *models.AlphaExercise
}

func (p *parseState) closeExercise() {
	if p.session != nil && p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parseState) closeSession() {
	p.closeExercise()
	if p.session != nil {
		p.sessions = append(p.sessions, *p.session)
	}
	p.session = nil
}

// Parse reads an Alpha Progression CSV export and returns parsed sessions in
// file order. Lines it does not recognize (notes, metadata) are skipped.
func Parse(r io.Reader) ([]models.AlphaSession, error) {
	scanner := bufio.NewScanner(r)
	var p parseState

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			// Blank line ends a session.
			p.closeSession()

		case columnHeaderRe.MatchString(line):

		case sessionHeaderRe.MatchString(line):
			m := sessionHeaderRe.FindStringSubmatch(line)
			p.closeSession()
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing session date %q: %w", lineNo, m[2], err)
			}
			p.session = &models.AlphaSession{Name: m[1], Date: date, Duration: m[3]}

		case exerciseHeaderRe.MatchString(line):
			m := exerciseHeaderRe.FindStringSubmatch(line)
			if p.session == nil {
				return nil, fmt.Errorf("line %d: exercise without session: %q", lineNo, line)
			}
			p.closeExercise()
			num, _ := strconv.Atoi(m[1])
			targetReps, _ := strconv.Atoi(m[4])
			p.exercise = &models.AlphaExercise{
				Number:     num,
				Name:       strings.TrimSpace(m[2]),
				Equipment:  strings.TrimSpace(m[3]),
				TargetReps: targetReps,
			}
			if m[6] != "" {
				p.exercise.Sets = append(p.exercise.Sets, parseWarmups(m[6])...)
			}

		case setDataRe.MatchString(line):
			m := setDataRe.FindStringSubmatch(line)
			if p.exercise == nil {
				return nil, fmt.Errorf("line %d: set data without exercise: %q", lineNo, line)
			}
			setNum, _ := strconv.Atoi(m[1])
			weight, isBW := parseWeight(m[2])
			reps, _ := strconv.Atoi(m[3])
			p.exercise.Sets = append(p.exercise.Sets, models.AlphaSet{
				Number:           setNum,
				WeightKg:         weight,
				IsBodyweightPlus: isBW,
				Reps:             reps,
				RIR:              parseRIR(m[4]),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	p.closeSession()
	return p.sessions, nil
}

// parseSessionDate parses "2026-02-19 4:54" into a time.Time.
func parseSessionDate(s string) (time.Time, error) {
	// Try both formats: "2026-02-19 4:54" and "2026-02-19 16:54"
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// parseWarmups extracts warmup sets from the warmup info string.
// Example: "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
func parseWarmups(s string) []models.AlphaSet {
	var sets []models.AlphaSet
	parts := strings.Split(s, "<br>")
	for _, part := range parts {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, isBW := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, models.AlphaSet{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: isBW,
			Reps:             reps,
			RIR:              models.UntrackedRIR,
			IsWarmup:         true,
		})
	}
	return sets
}

// parseWeight handles European decimals and bodyweight-plus notation.
// "+35" -> (35, true), "102,5" -> (102.5, false), "+0" -> (0, true)
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		w := parseEuropeanFloat(s[1:])
		return w, true
	}
	return parseEuropeanFloat(s), false
}

// parseRIR reads a reps-in-reserve cell. Blank, "-" or unreadable cells mean
// the set was logged without RIR.
func parseRIR(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return models.UntrackedRIR
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return models.UntrackedRIR
	}
	return f
}

// parseEuropeanFloat converts a European decimal string to float64.
// "102,5" -> 102.5, "0,5" -> 0.5
func parseEuropeanFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
