package config

import "slices"

type SsmInventoryConfig struct {
	Enable            bool              `yaml:"enable"`
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
}

type GlobalConfig struct {
	HomeRegion         string              `yaml:"homeRegion"`
	EnabledRegions     []string            `yaml:"enabledRegions"`
	SsmParameterPrefix string              `yaml:"ssmParameterPrefix,omitempty"`
	SsmInventory       *SsmInventoryConfig `yaml:"ssmInventory,omitempty"`
}

func (g *GlobalConfig) RegionEnabled(region string) bool {
	return region == g.HomeRegion || slices.Contains(g.EnabledRegions, region)
}
