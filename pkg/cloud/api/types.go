package api

import "github.com/mwelling79/pumpwatch/pkg/models"

type healthResponse struct {
	Status string `json:"status"`
	DB     bool   `json:"db"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	Username string `json:"username"`
}

type pumpDetailResponse struct {
	Pump    *models.PumpDetail        `json:"pump"`
	History []models.PumpHistoryPoint `json:"history"`
}
