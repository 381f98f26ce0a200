package main

import (
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// scrubFlags are the per-command overrides of the scrub settings.
type scrubFlags struct {
	style       string
	sensitivity string
	allow       []string
	deny        []string
}

func (f *scrubFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.style, "style", "s", "", "Redaction style: partial, full, placeholder, labeled")
	fs.StringVar(&f.sensitivity, "sensitivity", "", "Sensitivity: strict, balanced, lenient")
	fs.StringSliceVar(&f.allow, "allow", nil, "Glob of values never to redact (repeatable)")
	fs.StringSliceVar(&f.deny, "deny", nil, "Glob of values always to redact (repeatable)")
}

// apply layers changed flags over the loaded config and validates the
// result. Allow and deny globs from flags are added to the config lists.
func (f *scrubFlags) apply(cmd *cobra.Command) (scrub.Options, error) {
	c := *cfg
	if cmd.Flags().Changed("style") {
		c.RedactionStyle = f.style
	}
	if cmd.Flags().Changed("sensitivity") {
		c.Sensitivity = f.sensitivity
	}
	c.AllowList = append(append([]string{}, cfg.AllowList...), f.allow...)
	c.DenyList = append(append([]string{}, cfg.DenyList...), f.deny...)
	if err := c.Validate(); err != nil {
		return scrub.Options{}, err
	}
	return c.ScrubOptions(), nil
}
