/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/yada/InputParameters"
	"github.com/notargets/yada/mesh"
	"github.com/notargets/yada/readfiles"
	"github.com/notargets/yada/refine"
	"github.com/notargets/yada/types"
	"github.com/notargets/yada/utils"
)

type ModelRefine struct {
	InputPrefix string
	ParamsFile  string
	Graph       bool
	Delay       int // Milliseconds to hold the plot open
	Profile     string
	Verbose     bool
}

// RefineCmd represents the refine command
var RefineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine a mesh read from Triangle format files",
	Long: `
Reads <prefix>.node, <prefix>.poly and <prefix>.ele, refines the mesh until it
meets the angle constraint, verifies it and optionally writes it back out.

yada refine -i box -a 20 -t 8 -o box.1`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		mr := &ModelRefine{}
		if mr.InputPrefix, err = cmd.Flags().GetString("input"); err != nil {
			panic(err)
		}
		mr.ParamsFile, _ = cmd.Flags().GetString("params")
		mr.Graph, _ = cmd.Flags().GetBool("graph")
		mr.Delay, _ = cmd.Flags().GetInt("delay")
		mr.Profile, _ = cmd.Flags().GetString("profile")
		mr.Verbose, _ = cmd.Flags().GetBool("verbose")
		if len(mr.InputPrefix) == 0 {
			fmt.Printf("error: must supply an input prefix (-i, --input) naming Triangle .node/.poly/.ele files\n")
			os.Exit(1)
		}
		switch mr.Profile {
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
		case "":
		default:
			fmt.Printf("error: unknown profile type %q, use cpu or mem\n", mr.Profile)
			os.Exit(1)
		}
		fs := afero.NewOsFs()
		ip, err := processRefineInput(fs, mr)
		if err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
		if _, err = RunRefine(fs, mr, ip); err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(RefineCmd)
	defaults := InputParameters.NewRefineParameters()
	RefineCmd.Flags().StringP("input", "i", "", "prefix of the Triangle files to read")
	RefineCmd.Flags().StringP("output", "o", "", "prefix of the Triangle files to write the refined mesh to")
	RefineCmd.Flags().StringP("params", "p", "", "YAML file for refinement parameters like:\n\t- MinAngle\n\t- Workers")
	RefineCmd.Flags().Float64P("angle", "a", defaults.MinAngle, "minimum angle in degrees, at most 20.7 to guarantee termination")
	RefineCmd.Flags().IntP("threads", "t", defaults.Workers, "number of refinement workers")
	RefineCmd.Flags().Int("retries", defaults.MaxRetries, "attempts on a degenerate cavity before giving up on it")
	RefineCmd.Flags().BoolP("graph", "g", false, "display the refined mesh")
	RefineCmd.Flags().IntP("delay", "d", 10000, "milliseconds to keep the mesh plot open")
	RefineCmd.Flags().String("profile", "", "write a profile of the run: cpu or mem")
	RefineCmd.Flags().BoolP("verbose", "v", false, "print progress and worker diagnostics")
	for key, flag := range map[string]string{
		"refine.angle":   "angle",
		"refine.workers": "threads",
		"refine.retries": "retries",
		"refine.output":  "output",
	} {
		if err := viper.BindPFlag(key, RefineCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

/*
processRefineInput layers the refinement parameters: built in defaults, then
the YAML parameters file, then anything set through flags, the config file or
the environment.
*/
func processRefineInput(fs afero.Fs, mr *ModelRefine) (ip *InputParameters.RefineParameters, err error) {
	ip = InputParameters.NewRefineParameters()
	if len(mr.ParamsFile) != 0 {
		var data []byte
		if data, err = afero.ReadFile(fs, mr.ParamsFile); err != nil {
			return nil, fmt.Errorf("unable to read parameters: %w", err)
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("parameters file %s: %w", mr.ParamsFile, err)
		}
	}
	if viper.IsSet("refine.angle") {
		ip.MinAngle = viper.GetFloat64("refine.angle")
	}
	if viper.IsSet("refine.workers") {
		ip.Workers = viper.GetInt("refine.workers")
	}
	if viper.IsSet("refine.retries") {
		ip.MaxRetries = viper.GetInt("refine.retries")
	}
	if viper.IsSet("refine.output") {
		ip.OutputPrefix = viper.GetString("refine.output")
	}
	if err = ip.Validate(); err != nil {
		return nil, err
	}
	return
}

type RefineOutput struct {
	Initial, Final int
	Result         refine.Result
	Report         mesh.Report
}

func RunRefine(fs afero.Fs, mr *ModelRefine, ip *InputParameters.RefineParameters) (out RefineOutput, err error) {
	var (
		input mesh.Input
		m     *mesh.Mesh
		bad   []types.ElementID
	)
	if mr.Verbose {
		ip.Print()
	}
	if input, err = readfiles.ReadMesh(fs, mr.InputPrefix, mr.Verbose); err != nil {
		return
	}
	if m, bad, err = mesh.Build(input, ip.MinAngle); err != nil {
		return
	}
	out.Initial = m.Size()
	fmt.Printf("Initial number of elements = %d, bad = %d\n", out.Initial, len(bad))

	level := slog.LevelWarn
	if mr.Verbose {
		level = slog.LevelDebug
	}
	s := refine.NewScheduler(m,
		refine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
		refine.WithMaxRetries(ip.MaxRetries))
	s.Seed(bad...)
	out.Result = s.Run(ip.Workers)
	out.Final = m.Size()
	fmt.Printf("Final number of elements   = %d\n", out.Final)
	if mr.Verbose {
		out.Result.Print()
		fmt.Printf("%s\n", utils.GetMemUsage())
	}
	if ip.Verify {
		out.Report, err = m.Verify(out.Initial + out.Result.Delta)
		out.Report.Print()
		if err != nil {
			return out, fmt.Errorf("verification failed: %w", err)
		}
		fmt.Printf("Verification passed\n")
	}
	if len(ip.OutputPrefix) != 0 || mr.Graph {
		refined := m.Export()
		if len(ip.OutputPrefix) != 0 {
			if err = readfiles.WriteMesh(fs, ip.OutputPrefix, refined); err != nil {
				return
			}
			fmt.Printf("Wrote %s.node, %s.poly, %s.ele\n", ip.OutputPrefix, ip.OutputPrefix, ip.OutputPrefix)
		}
		if mr.Graph {
			readfiles.PlotMesh(refined, true)
			utils.SleepFor(mr.Delay)
		}
	}
	return
}
