/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: normalize.go
Description: Normalize command implementation. Binarizes a grammar, prints its size and
writes the flat integer stream as msgpack, or loads such a stream back for inspection.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/morellic/glade-full/pkg/grammar"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunNormalize converts the loaded grammar to normal form
func RunNormalize(cmd *cobra.Command, args []string) error {
	logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	var (
		ng   *grammar.NormalGrammar
		name string
	)
	if path := viper.GetString("normalize.load"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open grammar: %w", err)
		}
		defer f.Close()
		if ng, err = grammar.DecodeNormal(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		name = path
	} else {
		source, err := loadSource()
		if err != nil {
			return err
		}
		ng, name = source.Normal, source.Name
	}

	size := ng.Size()
	headerColor.Printf("Normal form of %s\n", name)
	fmt.Printf("  characters:   %d\n", size.Characters)
	fmt.Printf("  nonterminals: %d\n", size.Nonterminals)
	fmt.Printf("  productions:  %d\n", size.Productions)

	output := viper.GetString("normalize.output")
	if output == "" {
		return nil
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := grammar.EncodeNormal(f, ng); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	logger.GetLogger().WithFields(logrus.Fields{"output": output, "productions": size.Productions}).Info("Normal grammar written")
	successColor.Printf("Written %s\n", output)
	return nil
}
