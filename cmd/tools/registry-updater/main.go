// Command registry-updater maintains the activity registry the worker
// manager loads with --registry.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"team-notifier/pkg/registry"
)

const defaultPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}
	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string) error {
	switch cmd {
	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		a := registry.Activity{}
		fs.StringVar(&a.ID, "id", "", "Activity ID (e.g., notification.team.remind)")
		fs.StringVar(&a.DisplayName, "displayName", "", "Display name")
		fs.StringVar(&a.Description, "description", "", "Description")
		fs.StringVar(&a.Category, "category", "notification", "Category")
		fs.StringVar(&a.TaskType, "taskType", "", "Zeebe job type (e.g., team-event-notify)")
		fs.StringVar(&a.Version, "version", "1.0.0", "Version")
		fs.StringVar(&a.ImplementationStatus, "status", "planned", "Implementation status (planned, in-progress, completed, verified)")
		fs.StringVar(&a.Timeout, "timeout", "2m", "Job timeout")
		_ = fs.Parse(args)
		if a.ID == "" || a.DisplayName == "" || a.TaskType == "" {
			fs.Usage()
			return errors.New("id, displayName and taskType are required")
		}
		if err := addActivity(*path, a); err != nil {
			return err
		}
		fmt.Printf("Added activity: %s\n", a.ID)

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, timeout, retries, ...)")
		value := fs.String("value", "", "New value for the field")
		_ = fs.Parse(args)
		if *id == "" || *field == "" || *value == "" {
			fs.Usage()
			return errors.New("id, field and value are required")
		}
		if err := updateActivity(*path, *id, *field, *value); err != nil {
			return err
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		_ = fs.Parse(args)
		n, err := validateRegistry(*path)
		if err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", n)

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Where to write the built-in registry")
		_ = fs.Parse(args)
		reg, err := registry.Default()
		if err != nil {
			return err
		}
		if err := registry.Save(reg, *path); err != nil {
			return err
		}
		fmt.Printf("Wrote built-in registry to %s\n", *path)

	default:
		help()
	}
	return nil
}

// addActivity appends a to the registry at path, starting a new registry
// when the file does not exist yet.
func addActivity(path string, a registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}

	for _, existing := range reg.Activities {
		if existing.ID == a.ID {
			return fmt.Errorf("activity with ID %s already exists", a.ID)
		}
	}
	if a.InputSchema == nil {
		a.InputSchema = map[string]interface{}{"type": "object"}
	}
	if a.OutputSchema == nil {
		a.OutputSchema = map[string]interface{}{"type": "object"}
	}
	reg.Activities = append(reg.Activities, a)

	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.Save(reg, path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var a *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			a = &reg.Activities[i]
			break
		}
	}
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.Save(reg, path)
}

func validateRegistry(path string) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	return len(reg.Activities), nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file and its schemas
  export   Write the built-in registry to a file
  help     Show this help message

Examples:
  registry-updater export -path configs/activity-registry.json
  registry-updater update -id notification.team.notify -field timeout -value 5m
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
