package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/students"
	"github.com/spf13/cobra"
)

func studentsCommand(a *app) *cobra.Command {
	var (
		c     students.Criteria
		name  string
		lists bool
	)

	cmd := &cobra.Command{
		Use:   "students",
		Short: "Filter the student roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetDataConfig().StudentsCSV
			roster, err := students.LoadFile(path, a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if lists {
				printLists(out, roster)
				return nil
			}

			if name != "" {
				s, ok := roster.ByName(name)
				if !ok {
					return errors.New("no student named " + strconv.Quote(name))
				}
				fmt.Fprintln(out, students.Summary(s))
				fmt.Fprintln(out, students.Schedule(s))
				return nil
			}

			matched := roster.Filter(c)
			fmt.Fprintf(out, "%d of %d students\n", len(matched), roster.Len())
			for _, s := range matched {
				fmt.Fprintln(out, students.Summary(s))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&c.Year, "year", 0, "Study year, 0 for all")
	f.StringVar(&c.Specialization, "spec", students.Any, "Specialization")
	f.StringVar(&c.Room, "room", students.Any, "Room the student passes through")
	f.IntVar(&c.Hour, "hour", 0, "Restrict --room to one hour (13-17), 0 for any hour")
	f.StringVar(&c.Transport, "transport", students.Any, "Transport mode")
	f.StringVar(&c.Object, "object", "", "Text found in hair or clothing")
	f.StringVar(&name, "name", "", "Show one student's summary and schedule")
	f.BoolVar(&lists, "lists", false, "Print the filter value lists")
	return cmd
}

func printLists(out io.Writer, r *students.Roster) {
	years := r.Years()
	ys := make([]string, len(years))
	for i, y := range years {
		ys[i] = strconv.Itoa(y)
	}
	hours := students.Hours()
	hs := make([]string, len(hours))
	for i, h := range hours {
		hs[i] = strconv.Itoa(h) + "h"
	}

	fmt.Fprintf(out, "Years: %s\n", strings.Join(ys, ", "))
	fmt.Fprintf(out, "Specializations: %s\n", strings.Join(r.Specializations(), ", "))
	fmt.Fprintf(out, "Transport: %s\n", strings.Join(r.TransportModes(), ", "))
	fmt.Fprintf(out, "Rooms: %s\n", strings.Join(r.Rooms(), ", "))
	fmt.Fprintf(out, "Hours: %s\n", strings.Join(hs, ", "))
}
