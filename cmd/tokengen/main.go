// Package main provides a CLI tool for generating test tokens for the
// consent service. These tokens use the dev signing key and will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "github.com/markcoleman/Aggregator-the-agitator/internal/jwt_token"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	// Defaults matching config.FromEnv
	defaultIssuer   = "aggregator"
	defaultAudience = "fdx-api"
	defaultTokenTTL = 15 * time.Minute

	// Seeded demo identities (see the FDX store seed data)
	defaultSubjectID = "user-123"
	defaultClientID  = "client-456"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	subjectCmd := flag.NewFlagSet("subject", flag.ExitOnError)
	clientCmd := flag.NewFlagSet("client", flag.ExitOnError)
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)

	// Subject token flags
	subjectID := subjectCmd.String("subject-id", defaultSubjectID, "Data subject ID")
	subjectClientID := subjectCmd.String("client-id", defaultClientID, "Client application ID the subject acts through")
	subjectTTL := subjectCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	subjectJSON := subjectCmd.Bool("json", false, "Output as JSON")

	// Client token flags
	clientID := clientCmd.String("client-id", defaultClientID, "Client application ID")
	clientTTL := clientCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	clientJSON := clientCmd.Bool("json", false, "Output as JSON")

	// Admin token flags
	adminTTL := adminCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "subject":
		subjectCmd.Parse(os.Args[2:])
		generateSubjectToken(*subjectID, *subjectClientID, *subjectTTL, *subjectJSON)
	case "client":
		clientCmd.Parse(os.Args[2:])
		generateClientToken(*clientID, *clientTTL, *clientJSON)
	case "admin":
		adminCmd.Parse(os.Args[2:])
		generateAdminToken(*adminTTL, *adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate test tokens for the consent service

WARNING: These tokens use the dev signing key and will NOT work in production.
         Only use for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  subject   Generate a subject access token (data subject acting through a client)
  client    Generate a client access token (data recipient calling the FDX API)
  admin     Generate an admin access token

Examples:
  # Token for the seeded demo subject
  tokengen subject

  # Token for a specific subject and client
  tokengen subject -subject-id "user-456" -client-id "client-789"

  # Client token with a longer TTL
  tokengen client -ttl 1h

  # Admin token for the consent admin endpoints
  tokengen admin

  # Output as JSON
  tokengen subject -json

Use "tokengen <command> -h" for more information about a command.`)
}

func signingService() *jwttoken.JWTService {
	key := os.Getenv("JWT_SIGNING_KEY")
	if key == "" {
		key = devSigningKey
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := os.Getenv("JWT_AUDIENCE")
	if audience == "" {
		audience = defaultAudience
	}
	return jwttoken.NewJWTService(key, issuer, audience)
}

func generateSubjectToken(subjectID, clientID string, ttl time.Duration, jsonOutput bool) {
	sub := mustParseSubjectID(subjectID)
	client := mustParseClientID(clientID)

	token, err := signingService().GenerateAccessToken(sub, client, id.ActorSubject, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "subject_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"sub_id":      sub.String(),
				"client_id":   client.String(),
				"actor_type":  id.ActorSubject.String(),
				"api_version": id.DefaultVersion().String(),
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Subject Access Token")
	fmt.Println("====================")
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("Subject ID:  %s\n", sub)
	fmt.Printf("Client ID:   %s\n", client)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/consents")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/fdx/v6/accounts")
}

func generateClientToken(clientID string, ttl time.Duration, jsonOutput bool) {
	client := mustParseClientID(clientID)

	token, err := signingService().GenerateAccessToken("", client, id.ActorClient, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "client_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"client_id":   client.String(),
				"actor_type":  id.ActorClient.String(),
				"api_version": id.DefaultVersion().String(),
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Client Access Token")
	fmt.Println("===================")
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("Client ID:   %s\n", client)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -X POST -H \"Authorization: Bearer <token>\" http://localhost:8080/consents \\")
	fmt.Println("       -d '{\"subjectId\":\"user-123\",\"clientId\":\"" + client.String() + "\",\"dataScopes\":[\"accounts:read\"],\"accountIds\":[\"acc-001\"],\"purpose\":\"budgeting\",\"expiry\":\"2027-01-01T00:00:00Z\"}'")
}

func generateAdminToken(ttl time.Duration, jsonOutput bool) {
	token, err := signingService().GenerateAccessToken("", "", id.ActorAdmin, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "admin_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"actor_type":  id.ActorAdmin.String(),
				"api_version": id.DefaultVersion().String(),
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
				"note":   "Admin routes also require X-Admin-Token when ADMIN_API_TOKEN is set",
			},
		})
		return
	}

	fmt.Println("Admin Access Token")
	fmt.Println("==================")
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/admin/audit-events")
	fmt.Println("  curl -X POST -H \"Authorization: Bearer <token>\" http://localhost:8080/decision/check \\")
	fmt.Println("       -d '{\"subjectId\":\"user-123\",\"clientId\":\"client-456\",\"scopes\":[\"accounts:read\"]}'")
	fmt.Println()
	fmt.Println("Note: admin routes also require X-Admin-Token when ADMIN_API_TOKEN is set")
}

func mustParseSubjectID(input string) id.SubjectID {
	parsed, err := id.ParseSubjectID(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid subject-id: %v\n", err)
		os.Exit(1)
	}
	return parsed
}

func mustParseClientID(input string) id.ClientID {
	parsed, err := id.ParseClientID(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid client-id: %v\n", err)
		os.Exit(1)
	}
	return parsed
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
