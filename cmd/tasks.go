/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/nmtg/internal/task"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the available evaluation tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, name := range task.Names() {
			reg, _ := task.Lookup(name)
			fmt.Fprintf(w, "%s\t%s\n", reg.Name, reg.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
