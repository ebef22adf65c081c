// User management CLI for go-sitekit
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/go-while/go-sitekit/internal/config"
	"github.com/go-while/go-sitekit/internal/database"
	"github.com/go-while/go-sitekit/internal/models"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("go-sitekit User Manager (version: %s)", config.AppVersion)
	var (
		createUser  = flag.Bool("create", false, "Create a new user")
		listUsers   = flag.Bool("list", false, "List all users")
		deleteUser  = flag.Bool("delete", false, "Delete a user")
		setPass     = flag.Bool("setpass", false, "Update a user's password")
		grantPerm   = flag.String("grant", "", "Grant a permission to a user")
		revokePerm  = flag.String("revoke", "", "Revoke a permission from a user")
		listTokens  = flag.Bool("tokens", false, "List all API tokens")
		mkToken     = flag.Bool("mktoken", false, "Create an API token for a user")
		tokenDays   = flag.Int("tokendays", 0, "Days until the new token expires (0 = never)")
		username    = flag.String("username", "", "Username for user operations")
		email       = flag.String("email", "", "Email for user creation")
		display     = flag.String("display", "", "Display name for user creation")
		admin       = flag.Bool("admin", false, "Grant admin permissions to user")
		dataDir     = flag.String("datadir", "", "Directory holding the SQLite database")
	)
	flag.Parse()

	if !*createUser && !*listUsers && !*deleteUser && !*setPass &&
		*grantPerm == "" && *revokePerm == "" && !*listTokens && !*mkToken {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -username john -email john@example.com -display \"John Doe\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -setpass -username john\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -grant admin -username john\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mktoken -username john -tokendays 90\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -delete -username john\n", os.Args[0])
		os.Exit(1)
	}

	// Initialize database
	dbconfig := database.DefaultDBConfig()
	if *dataDir != "" {
		dbconfig.DataDir = *dataDir
	}
	db, err := database.OpenDatabase(dbconfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Shutdown()

	switch {
	case *createUser:
		if *username == "" {
			log.Fatal("Username is required for user creation")
		}
		if *email == "" {
			log.Fatal("Email is required for user creation")
		}
		if err := createNewUser(db, *username, *email, *display, *admin); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}

	case *listUsers:
		if err := listAllUsers(db); err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}

	case *deleteUser:
		if *username == "" {
			log.Fatal("Username is required for user deletion")
		}
		if err := deleteExistingUser(db, *username); err != nil {
			log.Fatalf("Failed to delete user: %v", err)
		}

	case *setPass:
		if *username == "" {
			log.Fatal("Username is required for password update")
		}
		if err := updateUserPassword(db, *username); err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}

	case *grantPerm != "":
		if *username == "" {
			log.Fatal("Username is required to grant a permission")
		}
		user := mustGetUser(db, *username)
		if err := db.GrantPermission(user.ID, *grantPerm); err != nil {
			log.Fatalf("Failed to grant permission: %v", err)
		}
		fmt.Printf("Granted '%s' to user '%s'\n", *grantPerm, *username)

	case *revokePerm != "":
		if *username == "" {
			log.Fatal("Username is required to revoke a permission")
		}
		user := mustGetUser(db, *username)
		if err := db.RevokePermission(user.ID, *revokePerm); err != nil {
			log.Fatalf("Failed to revoke permission: %v", err)
		}
		fmt.Printf("Revoked '%s' from user '%s'\n", *revokePerm, *username)

	case *listTokens:
		if err := listAllTokens(db); err != nil {
			log.Fatalf("Failed to list tokens: %v", err)
		}

	case *mkToken:
		if *username == "" {
			log.Fatal("Username is required for token creation")
		}
		if err := createToken(db, *username, *tokenDays); err != nil {
			log.Fatalf("Failed to create token: %v", err)
		}
	}
}

func mustGetUser(db *database.Database, username string) *models.User {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		log.Fatalf("User '%s' not found", username)
	}
	return user
}

// readNewPassword prompts for a password with confirmation.
func readNewPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if string(password) != string(confirmPassword) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(password) < 6 {
		return "", fmt.Errorf("password must be at least 6 characters long")
	}
	return string(password), nil
}

func createNewUser(db *database.Database, username, email, displayName string, isAdmin bool) error {
	// Check if user already exists
	if _, err := db.GetUserByUsername(username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	// Check if email already exists
	if _, err := db.GetUserByEmail(email); err == nil {
		return fmt.Errorf("email '%s' already exists", email)
	}

	password, err := readNewPassword("Enter password: ")
	if err != nil {
		return err
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	// Set display name to username if not provided
	if displayName == "" {
		displayName = username
	}

	// Create user
	user := &models.User{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
	}

	userID, err := db.InsertUser(user)
	if err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}

	// Add admin permission if requested
	if isAdmin {
		if err := db.GrantPermission(userID, "admin"); err != nil {
			return fmt.Errorf("user created but failed to grant admin permission: %v", err)
		}
		fmt.Printf("Granted admin permission to '%s'\n", username)
	}

	fmt.Printf("User '%s' created successfully (ID: %d)\n", username, userID)
	return nil
}

func listAllUsers(db *database.Database) error {
	users, total, err := db.ListUsers(1, 1000)
	if err != nil {
		return fmt.Errorf("failed to get users: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Printf("Found %d users:\n\n", total)
	fmt.Printf("%-4s %-6s %-20s %-30s %-20s %s\n", "ID", "Admin", "Username", "Email", "Display Name", "Created")
	fmt.Printf("%-4s %-6s %-20s %-30s %-20s %s\n", "----", "-----", "--------", "-----", "------------", "-------")

	for _, user := range users {
		adminMark := "no"
		if isAdminUser(db, user) {
			adminMark = "yes"
		}
		fmt.Printf("%-4d %-6s %-20s %-30s %-20s %s\n",
			user.ID,
			adminMark,
			truncate(user.Username, 20),
			truncate(user.Email, 30),
			truncate(user.DisplayName, 20),
			user.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	return nil
}

func deleteExistingUser(db *database.Database, username string) error {
	// Check if user exists
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}

	// Confirm deletion
	fmt.Printf("Are you sure you want to delete user '%s' (ID: %d)? [y/N]: ", username, user.ID)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	if response != "y" && response != "yes" {
		fmt.Println("User deletion cancelled")
		return nil
	}

	// Perform deletion
	if err := db.DeleteUser(user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	fmt.Printf("User '%s' (ID: %d) deleted\n", user.Username, user.ID)
	return nil
}

func updateUserPassword(db *database.Database, username string) error {
	// Check if user exists
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}

	password, err := readNewPassword(fmt.Sprintf("Enter new password for '%s': ", username))
	if err != nil {
		return err
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	// Update password
	if err := db.UpdateUserPassword(user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}

	fmt.Printf("Password updated successfully for user '%s'\n", username)
	return nil
}

func listAllTokens(db *database.Database) error {
	tokens, err := db.ListAPITokens()
	if err != nil {
		return fmt.Errorf("failed to get tokens: %v", err)
	}

	if len(tokens) == 0 {
		fmt.Println("No API tokens found")
		return nil
	}

	fmt.Printf("Found %d tokens:\n\n", len(tokens))
	fmt.Printf("%-4s %-20s %-8s %-6s %-20s %s\n", "ID", "Owner", "Enabled", "Used", "Created", "Expires")
	for _, token := range tokens {
		expires := "never"
		if token.ExpiresAt != nil {
			expires = token.ExpiresAt.Format("2006-01-02 15:04")
		}
		enabled := "no"
		if token.IsEnabled {
			enabled = "yes"
		}
		fmt.Printf("%-4d %-20s %-8s %-6d %-20s %s\n",
			token.ID,
			truncate(token.OwnerName, 20),
			enabled,
			token.UsageCount,
			token.CreatedAt.Format("2006-01-02 15:04"),
			expires,
		)
	}
	return nil
}

func createToken(db *database.Database, username string, days int) error {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}

	var expiresAt *time.Time
	if days > 0 {
		t := time.Now().AddDate(0, 0, days).UTC()
		expiresAt = &t
	}

	token, plainToken, err := db.CreateAPIToken(user.Username, user.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to create token: %v", err)
	}

	fmt.Printf("Token created (ID: %d). Store it now, it is not shown again:\n%s\n", token.ID, plainToken)
	if expiresAt != nil {
		fmt.Printf("Expires: %s\n", expiresAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// isAdminUser checks if a user is admin (ID 1 or has 'admin' permission)
func isAdminUser(db *database.Database, user *models.User) bool {
	if user == nil {
		return false
	}
	if user.ID == 1 {
		return true
	}
	has, err := db.HasPermission(user.ID, "admin")
	if err != nil {
		log.Printf("Failed to get permissions for user ID %d: %v", user.ID, err)
		return false
	}
	return has
}
