package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/cronside/cronside/internal/core"
)

// program adapts the module app to the system service manager contract.
type program struct {
	cfgPath string
	app     *core.App
}

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	app, _, err := buildApp(p.cfgPath)
	if err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		return err
	}
	p.app = app
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	if p.app != nil {
		p.app.Stop()
	}
	return nil
}

func serviceCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run or manage cronside as a system service",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	newService := func() (service.Service, error) {
		args := []string{"service", "run"}
		if cfgPath != "" {
			args = append(args, "--config", cfgPath)
		}
		return service.New(&program{cfgPath: cfgPath}, &service.Config{
			Name:        "cronside",
			DisplayName: "cronside scheduling agent",
			Description: "Schedules and runs headless CLI automation jobs.",
			Arguments:   args,
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (installed entry point)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})

	for _, action := range []string{"install", "uninstall", "start", "stop"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				svc, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(svc, c.Use); err != nil {
					return err
				}
				fmt.Printf("service %s: ok\n", c.Use)
				return nil
			},
		})
	}

	return cmd
}
