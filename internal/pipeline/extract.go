package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// maxExtractedSkills bounds the skill list carried downstream.
const maxExtractedSkills = 10

// ProfileFromRaw builds a structured profile from an untyped payload using
// field-presence rules. It serves double duty: decoding alias-tolerant
// model output and acting as the deterministic fallback extractor when the
// model fails outright.
func ProfileFromRaw(raw map[string]any, fallbackURL string) *model.ParsedProfile {
	p := &model.ParsedProfile{
		FullName:   stringField(raw, "full_name", "fullName", "name"),
		ProfileURL: stringField(raw, "profile_url", "profileUrl", "linkedInUrl", "url"),
		Headline:   stringField(raw, "headline", "subTitle"),
		Location:   locationField(raw),
		Company:    companyField(raw),
		Title:      stringField(raw, "title", "jobTitle", "position"),
		PhotoURL:   stringField(raw, "photo_url", "photoUrl", "profilePicture", "pictureUrl"),
		Skills:     skillsField(raw),
	}

	if p.FullName == "" {
		first := stringField(raw, "firstName", "first_name")
		last := stringField(raw, "lastName", "last_name")
		p.FullName = strings.TrimSpace(first + " " + last)
	}
	if p.ProfileURL == "" {
		p.ProfileURL = fallbackURL
	}

	p.ExperienceYears = experienceYears(raw)
	return p
}

func stringField(raw map[string]any, aliases ...string) string {
	for _, key := range aliases {
		if s, ok := raw[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func locationField(raw map[string]any) string {
	if s := stringField(raw, "location", "geoLocation"); s != "" {
		return s
	}
	// Some payloads nest location as {city, country}.
	if m, ok := raw["location"].(map[string]any); ok {
		city := stringField(m, "city")
		country := stringField(m, "country")
		switch {
		case city != "" && country != "":
			return city + ", " + country
		case city != "":
			return city
		case country != "":
			return country
		}
	}
	return ""
}

func companyField(raw map[string]any) string {
	if s := stringField(raw, "company", "companyName", "currentCompany"); s != "" {
		return s
	}
	if m, ok := raw["company"].(map[string]any); ok {
		return stringField(m, "name")
	}
	// First position's company as a last resort.
	for _, pos := range positionList(raw) {
		if s := stringField(pos, "companyName", "company"); s != "" {
			return s
		}
	}
	return ""
}

func skillsField(raw map[string]any) []string {
	items, ok := raw["skills"].([]any)
	if !ok {
		return nil
	}
	var skills []string
	for _, item := range items {
		var name string
		switch v := item.(type) {
		case string:
			name = v
		case map[string]any:
			name = stringField(v, "name", "skill")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		skills = append(skills, name)
		if len(skills) == maxExtractedSkills {
			break
		}
	}
	return skills
}

func positionList(raw map[string]any) []map[string]any {
	for _, key := range []string{"positions", "experience", "experiences"} {
		items, ok := raw[key].([]any)
		if !ok {
			// Some payloads wrap the list: {"positions": {"positionHistory": [...]}}.
			if m, mok := raw[key].(map[string]any); mok {
				items, ok = m["positionHistory"].([]any)
			}
			if !ok {
				continue
			}
		}
		var out []map[string]any
		for _, item := range items {
			if pos, ok := item.(map[string]any); ok {
				out = append(out, pos)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// experienceYears sums per-role durations. A numeric experience field on
// the payload wins; otherwise each position contributes its parsed
// duration string.
func experienceYears(raw map[string]any) float64 {
	for _, key := range []string{"experience_years", "experienceYears", "yearsOfExperience"} {
		switch v := raw[key].(type) {
		case float64:
			return roundYears(v)
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return roundYears(f)
			}
		}
	}

	var total float64
	for _, pos := range positionList(raw) {
		duration := stringField(pos, "duration", "dateRange", "dates")
		if duration == "" {
			continue
		}
		total += parseDurationYears(duration, time.Now().Year())
	}
	return roundYears(total)
}

var (
	yearRangeRe = regexp.MustCompile(`(\d{4})\s*[–—-]\s*((?i:present)|\d{4})`)
	yrsMosRe    = regexp.MustCompile(`(?i)(?:(\d+)\s*yrs?)?\s*(?:(\d+)\s*mos?)?`)
)

// parseDurationYears converts a free-text role duration into years. Two
// forms are supported: year ranges ("2019 – Present", "2016 – 2019") and
// elapsed spans ("3 yrs 4 mos", "11 mos").
func parseDurationYears(s string, currentYear int) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if m := yearRangeRe.FindStringSubmatch(s); m != nil {
		start, _ := strconv.Atoi(m[1])
		end := currentYear
		if !strings.EqualFold(m[2], "present") {
			end, _ = strconv.Atoi(m[2])
		}
		if end >= start {
			return float64(end - start)
		}
		return 0
	}

	if m := yrsMosRe.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		years := 0
		months := 0
		if m[1] != "" {
			years, _ = strconv.Atoi(m[1])
		}
		if m[2] != "" {
			months, _ = strconv.Atoi(m[2])
		}
		return float64(years) + float64(months)/12
	}

	return 0
}

func roundYears(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Round(v*10) / 10
}
