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
	"io/ioutil"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/godg/InputParameters"
	"github.com/notargets/godg/boxgrid"
	"github.com/notargets/godg/model_problems/wave"
)

// WaveCmd represents the wave command
var WaveCmd = &cobra.Command{
	Use:   "wave",
	Short: "First order acoustic wave system on a box grid",
	Long: `
Solves the first order wave system in weak form with upwind fluxes and an
absorbing boundary, using the compiled operator layer,

godg wave -n 4 -k 16 --dim 2`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("wave called")
		ip := InputParameters.DefaultWaveParameters()
		if icFile, _ := cmd.Flags().GetString("inputConditionsFile"); len(icFile) != 0 {
			data, err := ioutil.ReadFile(icFile)
			if err != nil {
				panic(err)
			}
			if err = ip.Parse(data); err != nil {
				panic(err)
			}
		}
		// explicit flags win over the parameter file, the parameter file
		// wins over viper config, viper wins over built-in defaults
		if viper.IsSet("CFL") && !cmd.Flags().Changed("CFL") {
			ip.CFL = viper.GetFloat64("CFL")
		}
		if cmd.Flags().Changed("n") {
			ip.PolynomialOrder, _ = cmd.Flags().GetInt("n")
		}
		if cmd.Flags().Changed("k") {
			ip.ElementsPerAxis, _ = cmd.Flags().GetInt("k")
		}
		if cmd.Flags().Changed("dim") {
			ip.Dimensions, _ = cmd.Flags().GetInt("dim")
		}
		if cmd.Flags().Changed("CFL") {
			ip.CFL, _ = cmd.Flags().GetFloat64("CFL")
		}
		if cmd.Flags().Changed("finalTime") {
			ip.FinalTime, _ = cmd.Flags().GetFloat64("finalTime")
		}
		if cmd.Flags().Changed("waveSpeed") {
			ip.WaveSpeed, _ = cmd.Flags().GetFloat64("waveSpeed")
		}
		if err := ip.Validate(); err != nil {
			panic(err)
		}
		ip.Print()

		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		withPerf, _ := cmd.Flags().GetBool("perf")
		RunWave(ip, withPerf)
	},
}

func init() {
	rootCmd.AddCommand(WaveCmd)
	WaveCmd.Flags().IntP("n", "n", 4, "polynomial degree")
	WaveCmd.Flags().IntP("k", "k", 16, "number of elements per axis")
	WaveCmd.Flags().Int("dim", 2, "spatial dimensions, 1 to 3")
	WaveCmd.Flags().Float64("CFL", 0.5, "CFL - increase for speedup, decrease for stability")
	WaveCmd.Flags().Float64("finalTime", 1, "FinalTime - the target end time for the sim")
	WaveCmd.Flags().Float64("waveSpeed", 1, "propagation speed of the medium")
	WaveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- CFL\n\t- PolynomialOrder")
	WaveCmd.Flags().Bool("profile", false, "write a CPU profile for this run")
	WaveCmd.Flags().Bool("perf", false, "report hardware perf counters for this run (linux only)")
	_ = viper.BindPFlag("CFL", WaveCmd.Flags().Lookup("CFL"))
}

func RunWave(ip *InputParameters.WaveParameters, withPerf bool) {
	k := make([]int, ip.Dimensions)
	for a := range k {
		k[a] = ip.ElementsPerAxis
	}
	g := boxgrid.NewGrid(ip.PolynomialOrder, k, ip.BoxMin, ip.BoxMax)
	wv := wave.NewWave(ip.CFL, ip.FinalTime, ip.WaveSpeed, g)
	wv.SourceOmega = ip.SourceOmega
	wv.SourceWidth = ip.SourceWidth
	wv.SourceCenter = ip.SourceCenter
	if ip.LogFrequency > 0 {
		wv.LogFrequency = ip.LogFrequency
	}
	if withPerf {
		runWithPerf(wv.Run)
	} else {
		wv.Run()
	}
	fmt.Printf("final energy = %8.6f\n", wv.Energy())
}
