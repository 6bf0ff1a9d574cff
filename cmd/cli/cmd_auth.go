package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var authOpts struct {
	username string
	email    string
	password string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the token for admin commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authOpts.email == "" || authOpts.password == "" {
			return errors.New("--email and --password are required")
		}
		payload := map[string]string{"email": authOpts.email, "password": authOpts.password}
		var resp authResponse
		if err := doJSON(cmd.Context(), http.MethodPost, strings.TrimRight(baseURL, "/")+"/auth/login", "", payload, &resp); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Printf("logged in as %s (%s)\n", resp.User.Username, resp.User.Role)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account; the first account on a server is the admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authOpts.username == "" || authOpts.email == "" || authOpts.password == "" {
			return errors.New("--username, --email and --password are required")
		}
		payload := map[string]string{"username": authOpts.username, "email": authOpts.email, "password": authOpts.password}
		var resp authResponse
		if err := doJSON(cmd.Context(), http.MethodPost, strings.TrimRight(baseURL, "/")+"/auth/register", "", payload, &resp); err != nil {
			return fmt.Errorf("register failed: %w", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Printf("registered and logged in as %s (%s)\n", resp.User.Username, resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored token and remove it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if token, err := readToken(tokenPath); err == nil {
			// revoke server side too; the local file goes either way
			if err := doJSON(cmd.Context(), http.MethodPost, strings.TrimRight(baseURL, "/")+"/auth/logout", token, nil, nil); err != nil {
				logger.Sugar().Debugf("server logout: %v", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("logged out")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&authOpts.email, "email", "", "email address")
		c.Flags().StringVar(&authOpts.password, "password", "", "password")
	}
	registerCmd.Flags().StringVar(&authOpts.username, "username", "", "username")
}
