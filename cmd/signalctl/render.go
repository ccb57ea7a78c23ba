package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"SignalEngine/internal/domain/models"
)

type evalRow struct {
	Index  int
	Result *models.SignalResult
	Err    error
}

// readMessages splits input into one JSON document per snapshot.
func readMessages(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var msgs []json.RawMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return msgs, nil
	}

	var msgs []json.RawMessage
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		msgs = append(msgs, json.RawMessage(append([]byte(nil), line...)))
	}
	return msgs, sc.Err()
}

func renderFamilies(w io.Writer, fams []models.FamilyConfig) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Family", "Zones", "Levels", "Neutral", "Base", "Range", "Strong", "Action", "Factors"})
	for _, f := range fams {
		tw.AppendRow(table.Row{
			f.Name, f.ZoneSource, f.Levels, f.NeutralLabel, f.BaseConfidence,
			fmt.Sprintf("%d-%d", f.MinConfidence, f.MaxConfidence),
			f.StrongThreshold, f.MinActionConfidence, len(f.Factors),
		})
	}
	tw.Render()
}

func renderResults(w io.Writer, rows []evalRow, withFactors bool) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Symbol", "Family", "Signal", "Conf", "Zone", "Bias", "CPR", "5m", "Stale"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Signal", Transformer: colorSignal},
		{Name: "Conf", Align: text.AlignRight},
	})

	for _, r := range rows {
		if r.Err != nil {
			tw.AppendRow(table.Row{r.Index, "", "", "ERROR", "", r.Err.Error()})
			continue
		}
		res := r.Result
		tw.AppendRow(table.Row{
			r.Index, res.Symbol, res.Family, string(res.Signal), res.Confidence,
			res.ZoneClassifier + ":" + res.Zone, res.Bias, res.CPRClass,
			fmt.Sprintf("%s %d%%", res.Prediction5m.Direction, res.Prediction5m.Confidence),
			res.Stale,
		})
	}
	tw.Render()

	if !withFactors {
		return
	}
	for _, r := range rows {
		if r.Result == nil {
			continue
		}
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetStyle(table.StyleLight)
		ft.SetTitle(fmt.Sprintf("#%d %s %s", r.Index, r.Result.Symbol, r.Result.Family))
		ft.AppendHeader(table.Row{"Factor", "Delta", "Note"})
		total := 0
		for _, f := range r.Result.Factors {
			ft.AppendRow(table.Row{f.Factor, fmt.Sprintf("%+d", f.Delta), f.Note})
			total += f.Delta
		}
		ft.AppendFooter(table.Row{"sum", fmt.Sprintf("%+d", total), fmt.Sprintf("confidence %d", r.Result.Confidence)})
		ft.Render()
	}
}

func colorSignal(v interface{}) string {
	s := fmt.Sprint(v)
	switch models.Signal(s).Direction() {
	case 1:
		return text.FgGreen.Sprint(s)
	case -1:
		return text.FgRed.Sprint(s)
	}
	return s
}
