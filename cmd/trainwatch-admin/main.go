// A command-line companion to the trainwatch server for user administration:
// creating accounts and resetting passwords without going through the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/akirol/trainwatch/internal/auth"
	"github.com/akirol/trainwatch/internal/config"
	"github.com/akirol/trainwatch/internal/db"
	"github.com/akirol/trainwatch/internal/store"
)

func main() {
	addUser := flag.String("add-user", "", "Create a user with the given username")
	resetUser := flag.String("reset-password", "", "Reset the password of the given username")
	role := flag.String("role", "viewer", "Role for a newly created user (admin or viewer)")
	password := flag.String("password", "", "Password for -add-user or -reset-password")
	listUsers := flag.Bool("list-users", false, "List all user accounts")
	flag.Parse()

	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	st := store.New(database)

	switch {
	case *listUsers:
		users, err := st.ListUsers()
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		for _, u := range users {
			fmt.Printf("%d\t%s\t%s\n", u.ID, u.Username, u.Role)
		}

	case *addUser != "":
		if *password == "" {
			log.Fatal("-add-user requires -password")
		}
		if *role != "admin" && *role != "viewer" {
			log.Fatalf("Unknown role %q (want admin or viewer)", *role)
		}
		hash, err := auth.HashPassword(*password)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		user, err := st.CreateUser(*addUser, hash, *role)
		if err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		fmt.Printf("Created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)

	case *resetUser != "":
		if *password == "" {
			log.Fatal("-reset-password requires -password")
		}
		user, err := st.GetUserByUsername(*resetUser)
		if err != nil {
			log.Fatalf("User %q not found: %v", *resetUser, err)
		}
		hash, err := auth.HashPassword(*password)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		if err := st.UpdateUserPassword(user.ID, hash); err != nil {
			log.Fatalf("Failed to reset password: %v", err)
		}
		fmt.Printf("Password updated for %s\n", user.Username)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
