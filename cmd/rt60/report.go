package main

import (
	"fmt"
	"io"
	"math"

	timestats "github.com/cwbudde/algo-dsp/stats/time"
	"github.com/cwbudde/algo-rt60/analysis"
)

// fileReport is the per-file output. Values that may be non-finite are
// pointers so that they encode as JSON null.
type fileReport struct {
	Path        string                      `json:"path"`
	Error       string                      `json:"error,omitempty"`
	SampleRate  int                         `json:"sample_rate,omitempty"`
	DurationS   float64                     `json:"duration_s,omitempty"`
	PeakDBFS    *float64                    `json:"peak_dbfs,omitempty"`
	RMSDBFS     *float64                    `json:"rms_dbfs,omitempty"`
	Bands       []bandReport                `json:"bands,omitempty"`
	Resonance   *analysis.ResonantFrequency `json:"resonance,omitempty"`
	AverageRT60 float64                     `json:"average_rt60_s"`
	TargetRT60  float64                     `json:"target_rt60_s"`
	Deviation   float64                     `json:"deviation_s"`
	Reference   *referenceReport            `json:"reference,omitempty"`
	Curves      string                      `json:"curves,omitempty"`
	ExportedWAV string                      `json:"exported_wav,omitempty"`
}

type pointReport struct {
	Index   int      `json:"index"`
	TimeS   float64  `json:"time_s"`
	LevelDB *float64 `json:"level_db"`
}

type bandReport struct {
	Band        string      `json:"band"`
	CutoffHz    float64     `json:"cutoff_hz"`
	BinIndex    int         `json:"bin_index"`
	FrequencyHz float64     `json:"frequency_hz"`
	Status      string      `json:"status"`
	Peak        pointReport `json:"peak"`
	Knee        pointReport `json:"knee"`
	TargetDB    *float64    `json:"target_db"`
	RT20        float64     `json:"rt20_s"`
	RT60        float64     `json:"rt60_s"`
}

// referenceReport carries the broadband ISO 3382 figures.
type referenceReport struct {
	RT60       *float64 `json:"rt60_s"`
	EDT        *float64 `json:"edt_s"`
	T20        *float64 `json:"t20_s"`
	T30        *float64 `json:"t30_s"`
	C50        *float64 `json:"c50_db"`
	C80        *float64 `json:"c80_db"`
	D50        *float64 `json:"d50"`
	CenterTime *float64 `json:"center_time_s"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newFileReport(path string, p *analysis.Params, r *analysis.Result) fileReport {
	w := r.Waveform()
	s := timestats.Calculate(w.Samples())
	rep := fileReport{
		Path:        path,
		SampleRate:  w.SampleRate(),
		DurationS:   w.Duration(),
		PeakDBFS:    finite(s.Peak_dB),
		RMSDBFS:     finite(s.RMS_dB),
		AverageRT60: r.AverageRT60,
		TargetRT60:  r.TargetRT60,
		Deviation:   r.DeviationFromTarget,
	}
	res := r.Resonance
	rep.Resonance = &res

	for _, b := range r.Bands() {
		est := r.Decay[b]
		trace, err := r.Trace(b)
		if err != nil {
			continue
		}
		rep.Bands = append(rep.Bands, bandReport{
			Band:        b.String(),
			CutoffHz:    p.CutoffHz(b),
			BinIndex:    trace.BinIndex,
			FrequencyHz: trace.FrequencyHz,
			Status:      est.Status.String(),
			Peak:        pointReport{Index: est.Peak.Index, TimeS: est.Peak.TimeSeconds, LevelDB: finite(est.Peak.LevelDB)},
			Knee:        pointReport{Index: est.Knee.Index, TimeS: est.Knee.TimeSeconds, LevelDB: finite(est.Knee.LevelDB)},
			TargetDB:    finite(est.TargetDB),
			RT20:        est.RT20,
			RT60:        est.RT60,
		})
	}

	if m := r.Reference; m != nil {
		rep.Reference = &referenceReport{
			RT60:       finite(m.RT60),
			EDT:        finite(m.EDT),
			T20:        finite(m.T20),
			T30:        finite(m.T30),
			C50:        finite(m.C50),
			C80:        finite(m.C80),
			D50:        finite(m.D50),
			CenterTime: finite(m.CenterTime),
		}
	}
	return rep
}

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func printText(out io.Writer, rep fileReport) {
	fmt.Fprintf(out, "%s: %d Hz, %.3f s, peak %s dBFS, rms %s dBFS\n",
		rep.Path, rep.SampleRate, rep.DurationS, fmtOpt(rep.PeakDBFS, "%.1f"), fmtOpt(rep.RMSDBFS, "%.1f"))
	for _, b := range rep.Bands {
		if b.Status == analysis.DecayNoSignal.String() {
			fmt.Fprintf(out, "  %-5s (bin %d, %.1f Hz): no signal\n", b.Band, b.BinIndex, b.FrequencyHz)
			continue
		}
		fmt.Fprintf(out, "  %-5s (bin %d, %.1f Hz): peak %.3f s %s dB, knee %.3f s %s dB, RT20 %.3f s, RT60 %.3f s",
			b.Band, b.BinIndex, b.FrequencyHz,
			b.Peak.TimeS, fmtOpt(b.Peak.LevelDB, "%.1f"),
			b.Knee.TimeS, fmtOpt(b.Knee.LevelDB, "%.1f"),
			b.RT20, b.RT60)
		if b.Status != analysis.DecayOK.String() {
			fmt.Fprintf(out, " [%s]", b.Status)
		}
		fmt.Fprintln(out)
	}
	if rep.Resonance != nil {
		fmt.Fprintf(out, "  resonance %.1f Hz (bin %d)\n", rep.Resonance.FrequencyHz, rep.Resonance.BinIndex)
	}
	fmt.Fprintf(out, "  average RT60 %.3f s, target %.3f s, deviation %+.3f s\n", rep.AverageRT60, rep.TargetRT60, rep.Deviation)
	if m := rep.Reference; m != nil {
		fmt.Fprintf(out, "  broadband: RT60 %s s, T20 %s s, T30 %s s, EDT %s s, C80 %s dB\n",
			fmtOpt(m.RT60, "%.3f"), fmtOpt(m.T20, "%.3f"), fmtOpt(m.T30, "%.3f"), fmtOpt(m.EDT, "%.3f"), fmtOpt(m.C80, "%.1f"))
	}
	if rep.Curves != "" {
		fmt.Fprintf(out, "  curves: %s\n", rep.Curves)
	}
	if rep.ExportedWAV != "" {
		fmt.Fprintf(out, "  exported: %s\n", rep.ExportedWAV)
	}
}
