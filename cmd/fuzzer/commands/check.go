/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: Check command implementation. Decides grammar membership for input files or
for each line of an inputs file and prints a coloured verdict per input.
*/

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/morellic/glade-full/pkg/solver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunCheck reports which inputs the loaded grammar accepts
func RunCheck(cmd *cobra.Command, args []string) error {
	logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	source, err := loadSource()
	if err != nil {
		return err
	}

	type input struct {
		label string
		data  string
	}
	var inputs []input
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		inputs = append(inputs, input{label: path, data: string(data)})
	}
	if path := viper.GetString("check.inputs"); path != "" {
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		for i, line := range lines {
			inputs = append(inputs, input{label: fmt.Sprintf("%s:%d", path, i+1), data: line})
		}
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs given: pass input files or --inputs")
	}

	oracle, err := solver.NewOracle(source.Normal, 0)
	if err != nil {
		return err
	}
	accepted := 0
	for _, in := range inputs {
		ok, err := oracle.Query(context.Background(), in.data)
		if err != nil {
			return err
		}
		if ok {
			accepted++
		}
		logger.GetLogger().WithFields(logrus.Fields{"input": in.data, "accepted": ok}).Debug("Membership decided")
		fmt.Printf("%s  %s\n", acceptedLabel(ok), in.label)
	}

	fmt.Println()
	headerColor.Printf("%d/%d inputs accepted by %s\n", accepted, len(inputs), source.Name)
	return nil
}
