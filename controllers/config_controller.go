package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/boardhub/config"
	"github.com/cppla/boardhub/utils"
)

// ConfigController serves environment-driven client configuration.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetCommunities returns the configured community tags and the default one.
func (c *ConfigController) GetCommunities(ctx *gin.Context) {
	cfg := config.Get()
	communities := cfg.Communities
	if communities == nil {
		communities = []string{}
	}
	utils.OK(ctx, gin.H{
		"communities": communities,
		"default":     cfg.DefaultCommunity,
	})
}
