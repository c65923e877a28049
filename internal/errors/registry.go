package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Behavior Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Behavior already registered",
		Detail:   "A different implementation is already registered under this name. The first registration is kept.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid behavior registration",
		Detail:   "Behaviors need a non-empty name and a non-nil implementation.",
	},
	"E102": {
		Category: CategoryBehavior,
		Message:  "Unknown detach reason",
		Detail:   "Detach reasons are unload, move and serialize.",
	},
	"E110": {
		Category: CategoryBehavior,
		Message:  "Behavior attach failed",
		Detail:   "The behavior returned an error while attaching. Remaining behaviors were still attached.",
	},
	"E111": {
		Category: CategoryBehavior,
		Message:  "Behavior detach failed",
		Detail:   "The behavior returned an error while detaching. Remaining behaviors were still detached.",
	},
	"E112": {
		Category: CategoryBehavior,
		Message:  "Behavior panicked",
		Detail:   "The behavior panicked. The panic was recovered and the pass continued with the next behavior.",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "behave.json could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No behave.json was found in the project directory or any parent.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A value in behave.json is out of range or inconsistent.",
	},
	"E130": {
		Category: CategoryConfig,
		Message:  "Invalid settings namespace",
		Detail:   "A settings namespace could not be decoded. Behaviors reading it fall back to their defaults.",
	},

	// ============================================
	// Fragment Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryFragment,
		Message:  "Fragment fetch failed",
		Detail:   "Supplementary markup could not be fetched from the fragment source.",
	},
	"E141": {
		Category: CategoryFragment,
		Message:  "Fragment not found",
		Detail:   "The fragment source has no content for the requested key.",
	},

	// ============================================
	// CLI Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryCLI,
		Message:  "Behavior failures during apply",
		Detail:   "One or more behaviors failed while processing the page and --strict was set.",
	},
	"E151": {
		Category: CategoryCLI,
		Message:  "Invalid trigger",
		Detail:   "A trigger must look like type[=value]:selector and match at least one element.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
