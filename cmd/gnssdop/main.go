// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	m "github.com/mkhts/gnssdop"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Structure to hold command line argument information
type cmdOpt struct {
	navFn    string
	outFn    string
	promFn   string
	t        m.TimeStr
	ts, te   m.TimeStr
	ti       int
	llh      m.PosLLH
	xyz      m.PosXYZ
	transit  bool
	elMask   float64
	sats     m.SatVar
	sel      m.DOPSelection
	dbgLevel int
}

func newRootCmd() *cobra.Command {
	var a cmdOpt
	root := &cobra.Command{
		Use:   "gnssdop",
		Short: "Satellite positions and DOP from RINEX navigation files",
		Long: `gnssdop computes GNSS satellite positions and velocities from broadcast
ephemeris (RINEX 3 navigation files, GPS/QZSS/Galileo) and the dilution of
precision seen from a receiver position.

Examples:
  gnssdop states brdc.nav --time "2024/03/01 12:00:00" --pos "35.681 139.767 40"
  gnssdop dop brdc.nav --pos "35.681 139.767 40" --ts "2024/03/01 00:00:00" --te "2024/03/01 23:59:30" --ti 30 --gdop --matrix`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			m.DBG_ = a.dbgLevel
		},
	}
	root.PersistentFlags().IntVarP(&a.dbgLevel, "debug", "x", 0, "Debug information display. Specify level value. 0(OFF), 1(display), 2(detailed display), 3(more detailed), 4(most detailed)")
	root.PersistentFlags().StringVarP(&a.outFn, "output", "o", "", "Output file path. If not specified, output to stdout.")
	root.PersistentFlags().Var(&a.sats, "sats", "Satellites to use. Comma-separated without spaces like G05,E11. Default: all")
	root.AddCommand(newStatesCmd(&a), newDopCmd(&a))
	return root
}

func newStatesCmd(a *cmdOpt) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "states NAV",
		Short: "Print satellite positions and velocities at one epoch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.navFn = args[0]
			if a.transit && !cmd.Flags().Changed("pos") && !cmd.Flags().Changed("xyz") {
				return fmt.Errorf("the receiver position must be specified with --transit! (--pos or --xyz option)")
			}
			return runStates(a, cmd.Flags().Changed("pos"), cmd.Flags().Changed("xyz"))
		},
	}
	cmd.Flags().Var(&a.t, "time", "Epoch (GPST). Enclose in quotes like --time \"2023/01/01 00:00:00\"")
	cmd.Flags().Var(&a.llh, "pos", "Receiver latitude/longitude/ellipsoidal height. Enclose in quotes like --pos \"35.73101206 139.7396917 80.33\"")
	cmd.Flags().Var(&a.xyz, "xyz", "Receiver ECEF position [m]. Enclose in quotes like --xyz \"-3961904.9 3348993.8 3698211.7\"")
	cmd.Flags().BoolVar(&a.transit, "transit", false, "Locate satellites at the signal transmission time seen from the receiver")
	cmd.MarkFlagRequired("time")
	cmd.MarkFlagsMutuallyExclusive("pos", "xyz")
	return cmd
}

func newDopCmd(a *cmdOpt) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dop NAV",
		Short: "Print DOP seen from a receiver over a time range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.navFn = args[0]
			if !cmd.Flags().Changed("pos") && !cmd.Flags().Changed("xyz") {
				return fmt.Errorf("the receiver position must be specified! (--pos or --xyz option)")
			}
			if a.ti <= 0 {
				return fmt.Errorf("calculation interval must be positive (ti=%d)", a.ti)
			}
			// Default to HDOP and VDOP if no value is selected
			if a.sel == (m.DOPSelection{}) {
				a.sel = m.NewDOPSelection()
			}
			return runDop(a, cmd.Flags().Changed("pos"))
		},
	}
	vOpt := m.NewVisOpt()
	cmd.Flags().Var(&a.llh, "pos", "Receiver latitude/longitude/ellipsoidal height. Enclose in quotes like --pos \"35.73101206 139.7396917 80.33\"")
	cmd.Flags().Var(&a.xyz, "xyz", "Receiver ECEF position [m]. Enclose in quotes like --xyz \"-3961904.9 3348993.8 3698211.7\"")
	cmd.Flags().Var(&a.ts, "ts", "Start epoch (GPST). Enclose in quotes like --ts \"2023/01/01 00:00:00\"")
	cmd.Flags().Var(&a.te, "te", "End epoch (GPST). Enclose in quotes like --te \"2023/01/02 00:00:00\". This epoch is also included.")
	cmd.Flags().IntVar(&a.ti, "ti", 30, "Calculation interval [s]")
	cmd.Flags().Float64Var(&a.elMask, "mask", vOpt.ElMask, "Elevation mask [deg]. Satellites strictly above the mask are used.")
	cmd.Flags().BoolVar(&a.sel.GDOP, "gdop", false, "Output GDOP")
	cmd.Flags().BoolVar(&a.sel.HDOP, "hdop", false, "Output HDOP (default when nothing is selected)")
	cmd.Flags().BoolVar(&a.sel.VDOP, "vdop", false, "Output VDOP (default when nothing is selected)")
	cmd.Flags().BoolVar(&a.sel.PDOP, "pdop", false, "Output PDOP")
	cmd.Flags().BoolVar(&a.sel.TDOP, "tdop", false, "Output TDOP")
	cmd.Flags().BoolVar(&a.sel.Matrix, "matrix", false, "Output the 10 independent entries of the DOP matrix")
	cmd.Flags().StringVar(&a.promFn, "prom", "", "Write counters to this file in the Prometheus textfile format")
	cmd.MarkFlagRequired("ts")
	cmd.MarkFlagRequired("te")
	cmd.MarkFlagsMutuallyExclusive("pos", "xyz")
	return cmd
}

// Print satellite states at one epoch
func runStates(a *cmdOpt, byLLH, byXYZ bool) error {

	nav, err := readNav(a.navFn)
	if err != nil {
		return fmt.Errorf("failed to read navigation file: %w", err)
	}
	if m.DBG_ >= 2 {
		m.PrintA("--- nav data (%s)---\n", filepath.Base(a.navFn))
		m.PrintA("%s", nav)
	}

	out, err := prepareOutput(a.outFn)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer out.Close()

	gt := *m.NewGTime(time.Time(a.t))
	ephs := nav.Select(gt, satsOrNil(a.sats))
	if len(ephs) == 0 {
		return fmt.Errorf("no ephemeris broadcast before %s", a.t.String())
	}
	ms := gt.Millis()

	hasPos := byLLH || byXYZ
	rx := a.xyz
	if byLLH {
		rx = a.llh.ToXYZ()
	}

	var states []m.SatelliteState
	if a.transit {
		states, _, _, err = m.LocateSatellites(ms, rx.Slice(), ephs, nil, nil)
	} else {
		states, err = m.Propagate(ms, ephs, nil)
	}
	if err != nil && !m.IsWarning(err) {
		return err
	}

	fmt.Fprintf(out, "%% program   : %s\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(out, "%% inp file  : %s\n", a.navFn)
	fmt.Fprintf(out, "%% epoch     : %s (week%d %9.3fs)(GPST) %.0f(%s)\n", gt.ToTime().UTC().Format("2006/01/02 15:04:05.000"), gt.Week, gt.Sec, ms, m.EPOCH_LABEL)
	cols := "%  sat            x(m)            y(m)            z(m)       vx(m/s)       vy(m/s)       vz(m/s)"
	if hasPos {
		cols += "   el(deg)   az(deg)"
	}
	if a.transit {
		cols += "   transit(s)"
	}
	fmt.Fprintln(out, cols)

	var los []m.LineOfSight
	if hasPos {
		los = m.LineOfSights(ms, rx, states)
	}
	for i, s := range states {
		fmt.Fprintf(out, "%5s %15.3f %15.3f %15.3f %13.4f %13.4f %13.4f", s.Sat, s.Pos.X, s.Pos.Y, s.Pos.Z, s.Vel.X, s.Vel.Y, s.Vel.Z)
		if hasPos {
			fmt.Fprintf(out, " %9.3f %9.3f", los[i].ElevationDeg, los[i].AzimuthDeg)
		}
		if a.transit {
			fmt.Fprintf(out, " %12.9f", s.TransitTime)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// Print DOP for every epoch in the time range
func runDop(a *cmdOpt, byLLH bool) error {

	nav, err := readNav(a.navFn)
	if err != nil {
		return fmt.Errorf("failed to read navigation file: %w", err)
	}
	if m.DBG_ >= 2 {
		m.PrintA("--- nav data (%s)---\n", filepath.Base(a.navFn))
		m.PrintA("%s", nav)
	}

	rx := a.xyz
	if byLLH {
		rx = a.llh.ToXYZ()
	}
	if m.DBG_ >= 1 {
		llh := rx.ToLLH()
		m.PrintA("rpos(llh, xyz): %14.9f %14.9f %10.4f, %10.4f %10.4f %10.4f\n", m.ToDeg(llh.Lat), m.ToDeg(llh.Lon), llh.Hei, rx.X, rx.Y, rx.Z)
	}

	vOpt := m.NewVisOpt()
	vOpt.ElMask = a.elMask

	// Collect line-of-sight geometry of every epoch
	los := []m.LineOfSight{}
	epochs := []float64{}
	ts := time.Time(a.ts)
	te := time.Time(a.te)
	if m.NewGTime(te).Before(ts, false) {
		return fmt.Errorf("end epoch is before start epoch")
	}
	for gt := *m.NewGTime(ts); !gt.After(te, false); gt = *m.NewGTimeFromMillis(gt.Millis() + float64(a.ti)*1000) {
		epochs = append(epochs, gt.Millis())
		epochLos, err := epochGeometry(nav, gt, rx, satsOrNil(a.sats), vOpt)
		if err != nil {
			m.PrintB(gt, "Error processing epoch: %s\n", err.Error())
			continue
		}
		los = append(los, epochLos...)
	}

	// Epochs without geometry are output as NaN rows
	tbl := m.SelectDOP(los, a.sel)
	tbl.Fill(epochs)

	out, err := prepareOutput(a.outFn)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer out.Close()
	printDopTable(out, a, rx, tbl)

	if len(a.promFn) > 0 {
		if err := m.WriteMetrics(a.promFn); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// Geometry of the visible satellites at one epoch
func epochGeometry(nav *m.Nav, gt m.GTime, rx m.PosXYZ, sats []m.SatType, vOpt *m.VisOpt) ([]m.LineOfSight, error) {
	ms := gt.Millis()
	m.PrintD(2, "\n>>> %s\n", gt.ToTime().UTC())

	ephs := nav.Select(gt, sats)
	if len(ephs) == 0 {
		return nil, fmt.Errorf("no ephemeris")
	}

	vis, err := m.FilterVisible(ms, rx.Slice(), ephs, nil, vOpt)
	if err != nil {
		return nil, err
	}
	if len(vis.Ephe) == 0 {
		return nil, fmt.Errorf("no visible satellite")
	}

	states, _, _, err := m.LocateSatellites(ms, rx.Slice(), vis.Ephe, nil, vOpt.Kepler)
	if err != nil && !m.IsWarning(err) {
		return nil, err
	}
	return m.LineOfSights(ms, rx, states), nil
}

// Print DOP table
func printDopTable(out io.Writer, a *cmdOpt, rx m.PosXYZ, tbl *m.DOPTable) {
	llh := rx.ToLLH()
	fmt.Fprintf(out, "%% program   : %s\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(out, "%% inp file  : %s\n", a.navFn)
	fmt.Fprintf(out, "%% ref pos   : %.8f %.8f %.3f\n", m.ToDeg(llh.Lat), m.ToDeg(llh.Lon), llh.Hei)
	fmt.Fprintf(out, "%% elev mask : %.1f\n", a.elMask)
	var sb strings.Builder
	sb.WriteString("%  GPST                   ")
	sb.WriteString(fmt.Sprintf("%15s", tbl.Labels[0]))
	for _, l := range tbl.Labels[1:] {
		sb.WriteString(fmt.Sprintf(" %10s", l))
	}
	fmt.Fprintln(out, sb.String())
	for _, row := range tbl.Rows {
		gt := m.NewGTimeFromMillis(row.Epoch)
		fmt.Fprintf(out, "%s %15.0f", gt.ToTime().UTC().Format("2006/01/02 15:04:05.000"), row.Epoch)
		for _, v := range row.Values {
			fmt.Fprintf(out, " %10.3f", v)
		}
		fmt.Fprintln(out)
	}
}

func satsOrNil(s m.SatVar) []m.SatType {
	if len(s) == 0 {
		return nil
	}
	return s
}

// Prepare output file
func prepareOutput(fn string) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(fn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}

	// Create output file
	f, err := os.Create(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Read navigation file
func readNav(fn string) (*m.Nav, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	nav, err := m.ReadNav(f)
	if err != nil {
		return nil, err
	}
	return nav, nil
}
