package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/config"
	"github.com/jpalmerr/pulsefeed/internal/control"
)

// controlCmd groups the backend commands.
var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send commands to the backend",
	Long: `Send start/stop commands to the backend and read or change its settings.

Example:
  pulsefeed control start-metrics -c config.yaml
  pulsefeed control workout -c config.yaml -f intervals.yaml
  pulsefeed control settings -c config.yaml --age 42`,
}

// simpleCommand builds a subcommand that issues one parameterless request.
func simpleCommand(use, short string, call func(*control.Client, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(cmd)
			if err != nil {
				return err
			}
			if err := call(client, cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", use)
			return nil
		},
	}
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update the metric settings",
	Long: `Show the metric settings, or update them when any flag is given.

Flags that are not given keep their current value.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

var workoutCmd = &cobra.Command{
	Use:   "workout",
	Short: "Show or replace the interval list",
	Long: `Show the configured intervals, or replace them from a YAML file:

  - name: warmup
    seconds: 300
  - name: sprint
    seconds: 30`,
	Args: cobra.NoArgs,
	RunE: runWorkout,
}

func init() {
	rootCmd.AddCommand(controlCmd)

	controlCmd.PersistentFlags().StringP("config", "c", "", "path to config file (required)")
	_ = controlCmd.MarkPersistentFlagRequired("config")

	controlCmd.AddCommand(
		simpleCommand("start-metrics", "Start sensor collection", (*control.Client).StartMetrics),
		simpleCommand("stop-metrics", "Stop sensor collection", (*control.Client).StopMetrics),
		simpleCommand("start-workout", "Start the interval timer", (*control.Client).StartWorkout),
		simpleCommand("stop-workout", "Stop the interval timer", (*control.Client).StopWorkout),
		settingsCmd,
		workoutCmd,
	)

	settingsCmd.Flags().Int("age", 0, "athlete age")
	settingsCmd.Flags().Float64("speed-wheel", 0, "speed sensor wheel circumference in meters")
	settingsCmd.Flags().Float64("distance-wheel", 0, "distance sensor wheel circumference in meters")

	workoutCmd.Flags().StringP("file", "f", "", "YAML file with the intervals to set")
}

// controlClient builds a client from the --config flag.
func controlClient(cmd *cobra.Command) (*control.Client, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config.BuildControlClient(cfg)
}

func runSettings(cmd *cobra.Command, args []string) error {
	client, err := controlClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	settings, err := client.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("age") || flags.Changed("speed-wheel") || flags.Changed("distance-wheel") {
		if flags.Changed("age") {
			settings.Age, _ = flags.GetInt("age")
		}
		if flags.Changed("speed-wheel") {
			settings.SpeedWheelCircumferenceM, _ = flags.GetFloat64("speed-wheel")
		}
		if flags.Changed("distance-wheel") {
			settings.DistanceWheelCircumferenceM, _ = flags.GetFloat64("distance-wheel")
		}
		if err := client.UpdateSettings(ctx, settings); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "age:                            %d\n", settings.Age)
	fmt.Fprintf(out, "speed_wheel_circumference_m:    %g\n", settings.SpeedWheelCircumferenceM)
	fmt.Fprintf(out, "distance_wheel_circumference_m: %g\n", settings.DistanceWheelCircumferenceM)
	return nil
}

func runWorkout(cmd *cobra.Command, args []string) error {
	client, err := controlClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		intervals, err := loadIntervals(file)
		if err != nil {
			return err
		}
		if err := client.SetWorkout(ctx, intervals); err != nil {
			return fmt.Errorf("set workout: %w", err)
		}
		fmt.Fprintf(out, "workout: %d intervals set\n", len(intervals))
		return nil
	}

	intervals, err := client.GetWorkout(ctx)
	if err != nil {
		return fmt.Errorf("get workout: %w", err)
	}
	var total time.Duration
	for i, iv := range intervals {
		d := time.Duration(iv.Seconds) * time.Second
		total += d
		fmt.Fprintf(out, "%2d. %-20s %s\n", i+1, iv.Name, d)
	}
	fmt.Fprintf(out, "total: %s\n", total)
	return nil
}

// loadIntervals reads an interval list from a YAML file.
func loadIntervals(path string) ([]pulsefeed.Interval, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intervals file: %w", err)
	}

	var raw []struct {
		Name    string `yaml:"name"`
		Seconds int    `yaml:"seconds"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse intervals file: %w", err)
	}

	intervals := make([]pulsefeed.Interval, len(raw))
	for i, r := range raw {
		intervals[i] = pulsefeed.Interval{Name: r.Name, Seconds: r.Seconds}
	}
	return intervals, nil
}
