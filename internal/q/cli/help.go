package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

func writeHelp(w io.Writer, cmd *Command) {
	name := displayName(cmd)
	if cmd.Short != "" {
		fmt.Fprintf(w, "%s - %s\n", name, cmd.Short)
	} else {
		fmt.Fprintln(w, name)
	}
	if cmd.Long != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(cmd.Long, "\n"))
	}

	flags := cmd.visibleFlags().sorted()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	usage := []string{name}
	if len(flags) > 0 {
		usage = append(usage, "[flags]")
	}
	if len(cmd.children) > 0 {
		if cmd.Run == nil {
			usage = append(usage, "<command>")
		} else {
			usage = append(usage, "[command]")
		}
	}
	if cmd.Run != nil {
		usage = append(usage, "[args]")
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(usage, " "))

	if len(cmd.children) > 0 {
		children := cmd.Commands()
		sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands:")
		for _, ch := range children {
			if ch.Short != "" {
				fmt.Fprintf(w, "  %s\t%s\n", ch.Name, ch.Short)
			} else {
				fmt.Fprintf(w, "  %s\n", ch.Name)
			}
		}
	}

	if len(flags) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		for _, f := range flags {
			fmt.Fprintln(w, flagHelpLine(f))
		}
	}

	if cmd.Example != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Example:")
		for _, line := range strings.Split(strings.TrimRight(cmd.Example, "\n"), "\n") {
			if line == "" {
				fmt.Fprintln(w)
				continue
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func displayName(cmd *Command) string {
	var parts []string
	for _, c := range cmd.lineage() {
		parts = append(parts, c.Name)
	}
	return strings.Join(parts, " ")
}

func flagHelpLine(f *flag) string {
	names := "    --" + f.name
	if f.shorthand != 0 {
		names = fmt.Sprintf("-%c, --%s", f.shorthand, f.name)
	}
	if t := f.value.typeName(); t != "" {
		names += " <" + t + ">"
	}
	if usage := strings.TrimSpace(f.usage); usage != "" {
		return "  " + names + "\t" + usage
	}
	return "  " + names
}
