package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	mongoMigration "medbook/internal/migrations/mongo"
	"medbook/pkg/client"
	"medbook/pkg/config"
	"medbook/pkg/model"
)

const (
	envBaseURL     = "MEDBOOK_API_URL"
	defaultBaseURL = "http://localhost:8080"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "medbookctl",
		Short:        "Operator commands for the medbook services",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("api", baseURLFromEnv(), "Base URL of the schedules service")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(schedulesCmd())
	rootCmd.AddCommand(deleteScheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func baseURLFromEnv() string {
	if v := os.Getenv(envBaseURL); v != "" {
		return v
	}
	return defaultBaseURL
}

func adminClient(cmd *cobra.Command) *client.AdminClient {
	baseURL, _ := cmd.Flags().GetString("api")
	return client.NewAdminClient(baseURL)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, validators and indexes in MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg := config.Load("medbookctl")
			cfg.SetMongo()
			defer cfg.GracefulShutdown()

			return mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName)
		},
	}
	cmd.Flags().Duration("timeout", 2*time.Minute, "Deadline for the whole migration")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate time slots for a doctor from their active schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			scheduleID, _ := cmd.Flags().GetString("schedule")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			result, err := adminClient(cmd).GenerateSlots(cmd.Context(), &model.GenerateRequest{
				DoctorID:   doctorID,
				ScheduleID: scheduleID,
				FromDate:   from,
				ToDate:     to,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "generated %d slots, skipped %d (%s to %s)\n",
				result.Generated, result.Skipped, result.FromDate, result.ToDate)
			return nil
		},
	}
	cmd.Flags().String("doctor", "", "Doctor ID")
	cmd.Flags().String("schedule", "", "Restrict generation to one schedule")
	cmd.Flags().String("from", "", "First date, YYYY-MM-DD (default today)")
	cmd.Flags().String("to", "", "Last date, YYYY-MM-DD (default today plus the generation horizon)")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}

func schedulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")

			schedules, err := adminClient(cmd).ListSchedules(cmd.Context(), doctorID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDOCTOR\tFROM\tTO\tDAYS\tHOURS\tACTIVE")
			for _, sc := range schedules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s-%s\t%t\n",
					sc.ID, sc.DoctorID, sc.StartDate, sc.EndDate, sc.DaysOfWeek,
					sc.DailyStartTime, sc.DailyEndTime, sc.IsActive)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("doctor", "", "Only schedules of this doctor")
	return cmd
}

func deleteScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-schedule",
		Short: "Delete a schedule and its unreferenced slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if err := adminClient(cmd).DeleteSchedule(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schedule %s deleted\n", id)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Schedule ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
