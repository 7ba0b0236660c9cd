// Package export writes ranked evaluation results to spreadsheet files.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sitescout/sitescout/internal/model"
)

var headers = []string{
	"Rank", "Name", "Score", "Tier", "Elevation (m)", "Flood Risk",
	"Power (km)", "Latency (ms)", "Cost ($k/MW)", "Justification",
}

// WriteEvaluation writes an evaluation's ranked results to an xlsx file.
func WriteEvaluation(eval *model.Evaluation, path string) error {
	if eval == nil || len(eval.Results) == 0 {
		return eris.New("export: evaluation has no results")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Rankings")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range headers {
		header.AddCell().SetString(h)
	}

	for i, r := range eval.Results {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetInt(r.Score)
		row.AddCell().SetString(string(r.Tier))
		row.AddCell().SetFloat(r.Attributes.ElevationM)
		row.AddCell().SetFloat(r.Attributes.FloodRisk)
		row.AddCell().SetFloat(r.Attributes.PowerKM)
		if r.Attributes.LatencyMS != nil {
			row.AddCell().SetFloat(*r.Attributes.LatencyMS)
		} else {
			row.AddCell().SetString("")
		}
		if r.Attributes.CostPerMW != nil {
			row.AddCell().SetFloat(*r.Attributes.CostPerMW)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(r.Justification)
	}

	if len(eval.Skipped) > 0 {
		skippedSheet, err := file.AddSheet("Skipped")
		if err != nil {
			return eris.Wrap(err, "export: add skipped sheet")
		}
		header := skippedSheet.AddRow()
		header.AddCell().SetString("Name")
		header.AddCell().SetString("Reason")
		for _, sk := range eval.Skipped {
			row := skippedSheet.AddRow()
			row.AddCell().SetString(sk.Name)
			row.AddCell().SetString(sk.Reason)
		}
	}

	return eris.Wrapf(file.Save(path), "export: save %s", path)
}
