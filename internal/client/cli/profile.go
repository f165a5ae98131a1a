package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/autoservice/internal/client/profile"
)

// Profile prints the current user's profile and where it came from.
func (a *App) Profile(ctx context.Context) error {
	res := a.profiles.GetCurrent(ctx)
	printProfile(a, res)
	return nil
}

// EditProfile prompts for the profile fields; blank answers keep the
// current value. A change that only reached this device is reported.
func (a *App) EditProfile(ctx context.Context) error {
	fmt.Fprintln(a.out, "Leave a field blank to keep its current value.")
	values, err := GetFields(a.reader, []field{
		{key: "firstName", prompt: "First name"},
		{key: "lastName", prompt: "Last name"},
		{key: "email", prompt: "Email"},
		{key: "phone", prompt: "Phone"},
		{key: "address", prompt: "Address"},
		{key: "city", prompt: "City"},
	}, a.out)
	if err != nil {
		return err
	}

	pick := func(k string) *string {
		if v := values[k]; v != "" {
			return &v
		}
		return nil
	}
	res := a.profiles.Update(ctx, profile.Update{
		FirstName: pick("firstName"),
		LastName:  pick("lastName"),
		Email:     pick("email"),
		Phone:     pick("phone"),
		Address:   pick("address"),
		City:      pick("city"),
	})
	printProfile(a, res)
	if !res.Success {
		return fmt.Errorf("profile update failed: %s", res.Warning)
	}
	return nil
}

func printProfile(a *App, res profile.Result) {
	p := res.Data
	switch {
	case res.IsEmpty:
		fmt.Fprintln(a.out, "No profile: sign in first.")
		return
	case res.FromBackend:
		fmt.Fprintf(a.out, "Profile (synced %s)\n", p.LastSynced)
	case res.IsNew:
		fmt.Fprintln(a.out, "Profile (new, stored on this device)")
	default:
		fmt.Fprintln(a.out, "Profile (offline copy)")
	}

	printTable(a.out, []string{"FIELD", "VALUE"}, [][]string{
		{"First name", p.FirstName},
		{"Last name", p.LastName},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Address", p.Address},
		{"City", p.City},
		{"Role", p.Role},
	})
	if res.Warning != "" {
		fmt.Fprintf(a.out, "Note: %s\n", res.Warning)
	}
}
