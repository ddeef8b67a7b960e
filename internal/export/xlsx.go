// Package export writes candidate lists to spreadsheet files for handoff
// to recruiters.
package export

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/scoutline/sourcing-cli/internal/model"
)

var candidateHeaders = []string{
	"Name", "Title", "Company", "Location", "Profile URL",
	"Email", "Email Type", "Email Status", "Phone",
	"Score", "Matched Skills", "Missing Skills", "Relevant Years",
	"Seniority", "Previously Sourced",
}

// CandidatesXLSX writes candidates to an .xlsx workbook at path.
func CandidatesXLSX(candidates []model.Candidate, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Candidates")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range candidateHeaders {
		header.AddCell().Value = h
	}

	for _, c := range candidates {
		row := sheet.AddRow()
		row.AddCell().Value = c.FullName
		row.AddCell().Value = c.Title
		row.AddCell().Value = c.Company
		row.AddCell().Value = c.Location
		row.AddCell().Value = c.ProfileURL
		row.AddCell().Value = c.Email
		row.AddCell().Value = c.EmailType
		row.AddCell().Value = c.EmailStatus
		row.AddCell().Value = c.Phone

		if c.Score != nil {
			row.AddCell().SetInt(c.Score.Total)
			row.AddCell().Value = strings.Join(c.Score.MatchedSkills, ", ")
			row.AddCell().Value = strings.Join(c.Score.MissingSkills, ", ")
			row.AddCell().Value = fmt.Sprintf("%.1f", c.Score.RelevantYears)
			row.AddCell().Value = string(c.Score.Seniority)
		} else {
			for range 5 {
				row.AddCell()
			}
		}

		if c.IsDuplicate {
			row.AddCell().Value = "yes (" + c.FirstSeenJobID + ")"
		} else {
			row.AddCell().Value = "no"
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
