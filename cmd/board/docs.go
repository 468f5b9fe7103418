package main

//go:generate swag init -g cmd/board/docs.go -o docs

// @title           Management Board API
// @version         0.1.0
// @description     Redmine issue mirror: sync, stored issues, and API key management.
// @host            localhost:5000
// @BasePath        /
// @schemes         http
