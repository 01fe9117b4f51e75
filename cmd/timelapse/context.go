package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"timelapse/internal/apiclient"
	"timelapse/internal/config"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) baseURL() (string, error) {
	if c.apiFlag != nil {
		if override := strings.TrimSpace(*c.apiFlag); override != "" {
			return apiclient.BaseURLFromBind(override), nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return apiclient.BaseURLFromBind(cfg.Paths.APIBind), nil
}

func (c *commandContext) client() (*apiclient.Client, string, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, "", err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	return apiclient.NewClient(base, apiclient.WithToken(cfg.Paths.APIToken)), base, nil
}

func wrapDialError(err error, base string) error {
	if err == nil {
		return nil
	}
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		return err
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `timelapse serve`", base)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
