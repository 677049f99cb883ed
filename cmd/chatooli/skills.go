package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chatooli/chatooli/pkg/presenter"
	"github.com/chatooli/chatooli/pkg/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect the skill packs and their matching keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("skills_dir")
		index := skills.LoadIndex(cmd.Context(), dir)

		if len(index.Skills()) == 0 {
			presenter.Warning(fmt.Sprintf("No skills found in %s", dir))
			return nil
		}

		presenter.Section(fmt.Sprintf("Skills (%d)", len(index.Skills())))
		for _, sk := range index.Skills() {
			presenter.Info(fmt.Sprintf("%s [%s]", sk.Name, sk.Outcome))
			if sk.Description != "" {
				presenter.Info("  " + sk.Description)
			}
			if len(sk.Keywords) > 0 {
				presenter.Info("  keywords: " + strings.Join(sk.Keywords, ", "))
			}
		}

		if message, _ := cmd.Flags().GetString("match"); message != "" {
			matched := index.Match(message)
			presenter.Section("Match")
			if len(matched) == 0 {
				presenter.Info("no skills match: " + message)
			} else {
				presenter.Success(fmt.Sprintf("%q matches: %s", message, strings.Join(skills.MatchedNames(matched), ", ")))
			}
		}
		return nil
	},
}

func init() {
	skillsCmd.Flags().String("match", "", "Test which skills a message would match")
	skillsCmd.Flags().String("skills-dir", "skills", "Directory containing skill packs")
	viper.BindPFlag("skills_dir", skillsCmd.Flags().Lookup("skills-dir"))
}
