package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OK writes body unchanged with status 200.
func OK(ctx *gin.Context, body interface{}) {
	ctx.JSON(http.StatusOK, body)
}

// Created writes body unchanged with status 201.
func Created(ctx *gin.Context, body interface{}) {
	ctx.JSON(http.StatusCreated, body)
}

// Message writes {"message": msg} with status 200.
func Message(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{Code: code, Message: message})
}
