package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"city-spots/internal/appstate"
	"city-spots/internal/client"
	"city-spots/internal/domain"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	logger := zap.NewExample()
	defer logger.Sync()

	api := client.New(baseURL)

	cachePath := fallbackCachePath()
	store := appstate.NewStore(logger, api, api, appstate.NotifierFunc(func(message string) {
		fmt.Printf("\n!! %s\n", message)
	}), appstate.WithFallbackCache(appstate.NewFallbackCache(cachePath)))

	// El dueno del loop es dueno del par subscribe/unsubscribe.
	unsubscribe := store.InitializeAuthListener(ctx)
	defer unsubscribe()

	fmt.Println("===== city-spots =====")
	for {
		user := store.CurrentUser()
		if user != nil {
			fmt.Printf("\nSigned in as %s (%d attended)\n", user.Email, len(store.AttendedIDs()))
		} else {
			fmt.Println("\nNot signed in")
		}
		fmt.Println("[1] Browse locations")
		fmt.Println("[2] Set category filter")
		fmt.Println("[3] Set region filter")
		fmt.Println("[4] Toggle attended by id")
		if user == nil {
			fmt.Println("[5] Log in")
			fmt.Println("[6] Sign up")
			fmt.Println("[7] Reset password")
			fmt.Println("[8] Set new password with reset token")
		} else {
			fmt.Println("[5] Log out")
		}
		fmt.Println("[0] Quit")
		fmt.Print("> ")

		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		switch choice {
		case "1":
			browse(ctx, api, store)
		case "2":
			pickCategory(reader, store)
		case "3":
			pickRegion(reader, store)
		case "4":
			fmt.Print("Location id: ")
			id, _ := reader.ReadString('\n')
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if err := store.ToggleAttendedEvent(ctx, id); err == nil {
				fmt.Println("Saved.")
			}
		case "5":
			if user == nil {
				login(ctx, reader, api)
			} else {
				if err := api.SignOut(ctx); err != nil {
					fmt.Printf("Sign out: %v\n", err)
				}
			}
		case "6":
			if user == nil {
				signup(ctx, reader, api)
			}
		case "7":
			if user == nil {
				resetPassword(ctx, reader, api)
			}
		case "8":
			if user == nil {
				updatePassword(ctx, reader, api)
			}
		case "0":
			return
		}
	}
}

func browse(ctx context.Context, api *client.Client, store *appstate.Store) {
	locations, err := api.ListLocations(ctx, store.SelectedCategory(), store.SelectedRegion())
	if err != nil {
		fmt.Printf("List locations: %v\n", err)
		return
	}
	fmt.Printf("\n%-6s %-45s %-15s %s\n", "ID", "NAME", "CATEGORY", "REGION")
	for _, loc := range locations {
		mark := " "
		if store.IsAttended(loc.ID) {
			mark = "*"
		}
		fmt.Printf("%s %-5s %-45s %-15s %s\n", mark, loc.ID, loc.Name, loc.Category, loc.Region)
	}
	fmt.Printf("%d locations (* = attended)\n", len(locations))
}

func pickCategory(reader *bufio.Reader, store *appstate.Store) {
	options := append([]domain.Category{domain.CategoryAll}, domain.Categories()...)
	for i, c := range options {
		fmt.Printf("[%d] %s\n", i+1, c)
	}
	fmt.Print("Category: ")
	choice, _ := reader.ReadString('\n')
	idx, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || idx < 1 || idx > len(options) {
		fmt.Println("Invalid selection.")
		return
	}
	store.SetSelectedCategory(options[idx-1])
}

func pickRegion(reader *bufio.Reader, store *appstate.Store) {
	options := append([]domain.Region{domain.RegionAll}, domain.Regions()...)
	for i, r := range options {
		fmt.Printf("[%d] %s\n", i+1, r)
	}
	fmt.Print("Region: ")
	choice, _ := reader.ReadString('\n')
	idx, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || idx < 1 || idx > len(options) {
		fmt.Println("Invalid selection.")
		return
	}
	store.SetSelectedRegion(options[idx-1])
}

func login(ctx context.Context, reader *bufio.Reader, api *client.Client) {
	email := prompt(reader, "Email: ")
	password := prompt(reader, "Password: ")
	if _, err := api.SignInWithPassword(ctx, email, password); err != nil {
		fmt.Printf("Login failed: %v\n", err)
	}
}

func signup(ctx context.Context, reader *bufio.Reader, api *client.Client) {
	email := prompt(reader, "Email: ")
	password := prompt(reader, "Password (min 6 chars): ")
	if _, err := api.SignUp(ctx, email, password); err != nil {
		fmt.Printf("Signup failed: %v\n", err)
		return
	}
	fmt.Println("Check your email for a confirmation link, then log in.")
}

func resetPassword(ctx context.Context, reader *bufio.Reader, api *client.Client) {
	email := prompt(reader, "Email: ")
	if err := api.ResetPasswordForEmail(ctx, email); err != nil {
		fmt.Printf("Reset request failed: %v\n", err)
		return
	}
	fmt.Println("If that address has an account, a reset link is on its way.")
}

func updatePassword(ctx context.Context, reader *bufio.Reader, api *client.Client) {
	token := prompt(reader, "Reset token (from the emailed link): ")
	password := prompt(reader, "New password (min 6 chars): ")
	confirm := prompt(reader, "Confirm new password: ")
	if err := api.UpdateUser(ctx, token, password, confirm); err != nil {
		fmt.Printf("Update failed: %v\n", err)
		return
	}
	fmt.Println("Password updated. Log in with your new password.")
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	value, _ := reader.ReadString('\n')
	return strings.TrimSpace(value)
}

func fallbackCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "city-spots", "attended.json")
}
