package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"homecare-portal/internal/availability"
	"homecare-portal/internal/config"
	"homecare-portal/internal/models"
)

// SlotResult is the JSON output of the slot command.
type SlotResult struct {
	Weekday  string   `json:"weekday,omitempty"`
	OK       bool     `json:"ok"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewSlotCommand creates the slot command, an offline availability check.
func NewSlotCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		days   []string
		hours  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:           "slot <YYYY-MM-DD> <HH:MM>",
		Short:         "Check a date and start time against working days and hours",
		Example:       `  homecare-portal slot 2026-03-04 09:30 --days Lunes,Miércoles --hours 08:00-12:00,15:00-18:00`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigFile)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			v := availability.NewValidator(
				availability.WithLanguage(language.Make(cfg.Locale)),
				availability.WithLocation(loc),
			)

			result := checkSlot(v, args[0], args[1], models.Availability{Days: days, Hours: hours})
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			if result.Weekday != "" {
				fmt.Fprintf(out, "%s %s (%s)\n", args[0], args[1], result.Weekday)
			}
			if result.OK {
				fmt.Fprintln(out, "available")
				return nil
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "- %s\n", w)
			}
			return fmt.Errorf("slot not available")
		},
	}

	cmd.Flags().StringSliceVar(&days, "days", nil, "working days, comma separated")
	cmd.Flags().StringSliceVar(&hours, "hours", nil, "working hour ranges HH:MM-HH:MM, comma separated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func checkSlot(v *availability.Validator, date, startTime string, avail models.Availability) SlotResult {
	var result SlotResult
	if weekday, err := v.WeekdayOf(date); err == nil {
		result.Weekday = weekday
	}
	for _, err := range v.Warnings(date, startTime, avail) {
		result.Warnings = append(result.Warnings, availability.Message(err))
	}
	result.OK = len(result.Warnings) == 0
	return result
}
