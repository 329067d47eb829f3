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
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/mesh"
	"github.com/notargets/yada/meshgen"
	"github.com/notargets/yada/readfiles"
)

type ModelGenerate struct {
	InputPrefix, OutputPrefix string
	NX, NY                    int
	Width, Height             float64
	Verbose                   bool
}

// GenerateCmd represents the generate command
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build an initial mesh to refine",
	Long: `
Triangulates the nodes and segments in <prefix>.node and <prefix>.poly with a
constrained Delaunay triangulation, or without an input prefix builds a
structured grid of right triangles. The result is written in Triangle format.

yada generate -i box -o box.0
yada generate --nx 16 --ny 4 --width 16 --height 1 -o strip`,
	Run: func(cmd *cobra.Command, args []string) {
		mg := &ModelGenerate{}
		mg.InputPrefix, _ = cmd.Flags().GetString("input")
		mg.OutputPrefix, _ = cmd.Flags().GetString("output")
		mg.NX, _ = cmd.Flags().GetInt("nx")
		mg.NY, _ = cmd.Flags().GetInt("ny")
		mg.Width, _ = cmd.Flags().GetFloat64("width")
		mg.Height, _ = cmd.Flags().GetFloat64("height")
		mg.Verbose, _ = cmd.Flags().GetBool("verbose")
		if len(mg.OutputPrefix) == 0 {
			fmt.Printf("error: must supply an output prefix (-o, --output)\n")
			os.Exit(1)
		}
		if _, err := RunGenerate(afero.NewOsFs(), mg); err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(GenerateCmd)
	GenerateCmd.Flags().StringP("input", "i", "", "prefix of the .node and .poly files to triangulate")
	GenerateCmd.Flags().StringP("output", "o", "", "prefix of the Triangle files to write")
	GenerateCmd.Flags().Int("nx", 8, "grid cells along x")
	GenerateCmd.Flags().Int("ny", 2, "grid cells along y")
	GenerateCmd.Flags().Float64("width", 8, "grid width")
	GenerateCmd.Flags().Float64("height", 1, "grid height")
	GenerateCmd.Flags().BoolP("verbose", "v", false, "print progress")
}

func RunGenerate(fs afero.Fs, mg *ModelGenerate) (out mesh.Input, err error) {
	if len(mg.InputPrefix) != 0 {
		var (
			pslg  mesh.Input
			holes []geometry2D.Coordinate
		)
		if pslg, holes, _, err = readfiles.ReadPSLG(fs, mg.InputPrefix, mg.Verbose); err != nil {
			return
		}
		if out, err = meshgen.ConstrainedDelaunay(pslg, holes); err != nil {
			return
		}
	} else if out, err = meshgen.Grid(mg.NX, mg.NY, mg.Width, mg.Height); err != nil {
		return
	}
	if mg.Verbose {
		fmt.Printf("Nv = %d, K = %d, segments = %d\n", len(out.Nodes), len(out.Triangles), len(out.Segments))
	}
	err = readfiles.WriteMesh(fs, mg.OutputPrefix, out)
	return
}
