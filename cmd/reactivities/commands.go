package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nomis52/reactivities/clients/apiclient"
)

// Profile page tabs that list followings.
const (
	followersTab = 3
	followingTab = 4
)

func activitiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "activities",
		Usage: "list activities grouped by date",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			printGroups(s.out, s.root.Activities.ActivitiesByDate())
			return nil
		}),
	}
}

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:      "activity",
		Usage:     "show one or more activities",
		ArgsUsage: "<id>...",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			ids := cmd.Args().Slice()
			found := make([]apiclient.Activity, len(ids))

			var g errgroup.Group
			for i, id := range ids {
				g.Go(func() error {
					a, result := s.root.Activities.LoadActivity(ctx, id)
					if err := s.check(result); err != nil {
						return fmt.Errorf("activity %s: %w", id, err)
					}
					found[i] = a
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, a := range found {
				printActivity(s.out, a)
			}
			return nil
		}),
	}
}

func attendCommand(going bool) *cli.Command {
	name, usage := "attend", "sign up to an activity"
	if !going {
		name, usage = "unattend", "cancel attendance of an activity"
	}
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			id := cmd.Args().First()
			store := s.root.Activities
			if going {
				if err := s.check(store.Attend(ctx, id)); err != nil {
					return err
				}
			} else if err := s.check(store.CancelAttendance(ctx, id)); err != nil {
				return err
			}
			printActivity(s.out, store.Snapshot().Registry[id])
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			user, ok := s.root.Users.User()
			if !ok {
				return fmt.Errorf("not signed in")
			}
			fmt.Fprintf(s.out, "%s (%s)\n", user.DisplayName, user.Username)
			if user.Image != "" {
				fmt.Fprintf(s.out, "  image: %s\n", user.Image)
			}
			return nil
		}),
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "show a profile; defaults to the signed-in user",
		ArgsUsage: "[username]",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			username, err := usernameArg(cmd, s)
			if err != nil {
				return err
			}
			if err := s.check(s.root.Profiles.LoadProfile(ctx, username)); err != nil {
				return err
			}
			printProfile(s.out, *s.root.Profiles.Snapshot().Profile, s.root.Profiles.IsCurrentUser())
			return nil
		}),
	}
}

func followCommand(follow bool) *cli.Command {
	name, usage := "follow", "follow a user"
	if !follow {
		name, usage = "unfollow", "stop following a user"
	}
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<username>",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			username := cmd.Args().First()
			store := s.root.Profiles
			if err := s.check(store.LoadProfile(ctx, username)); err != nil {
				return err
			}
			if follow {
				if err := s.check(store.Follow(ctx, username)); err != nil {
					return err
				}
			} else if err := s.check(store.Unfollow(ctx, username)); err != nil {
				return err
			}
			printProfile(s.out, *store.Snapshot().Profile, false)
			return nil
		}),
	}
}

func followingsCommand(predicate apiclient.FollowPredicate) *cli.Command {
	tab := followersTab
	if predicate == apiclient.Following {
		tab = followingTab
	}
	return &cli.Command{
		Name:      string(predicate),
		Usage:     fmt.Sprintf("list the %s of a user; defaults to the signed-in user", predicate),
		ArgsUsage: "[username]",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			username, err := usernameArg(cmd, s)
			if err != nil {
				return err
			}
			store := s.root.Profiles
			if err := s.check(store.LoadProfile(ctx, username)); err != nil {
				return err
			}
			// Selecting the tab loads the list.
			store.SetActiveTab(ctx, tab)

			st := store.Snapshot()
			if len(st.Followings) == 0 {
				fmt.Fprintf(s.out, "%s has no %s\n", username, predicate)
				return nil
			}
			for _, p := range st.Followings {
				printProfileLine(s.out, p)
			}
			return nil
		}),
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload a photo to the signed-in user's gallery",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "main", Usage: "make the uploaded photo the main photo"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			path := cmd.Args().First()
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			store := s.root.Profiles
			if err := loadOwnProfile(ctx, s); err != nil {
				return err
			}
			before := len(store.Snapshot().Profile.Photos)
			if err := s.check(store.UploadPhoto(ctx, filepath.Base(path), f)); err != nil {
				return err
			}

			photos := store.Snapshot().Profile.Photos
			if len(photos) <= before {
				return fmt.Errorf("uploaded photo missing from gallery")
			}
			photo := photos[len(photos)-1]
			fmt.Fprintf(s.out, "uploaded %s (%s) as %s\n", filepath.Base(path), formatBytes(info.Size()), photo.ID)

			if cmd.Bool("main") && !photo.IsMain {
				if err := s.check(store.SetMainPhoto(ctx, photo)); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%s is now the main photo\n", photo.ID)
			}
			return nil
		}),
	}
}

func setMainCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-main",
		Usage:     "make a photo the signed-in user's main photo",
		ArgsUsage: "<photo-id>",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			if err := loadOwnProfile(ctx, s); err != nil {
				return err
			}
			photo, err := ownPhoto(s, cmd.Args().First())
			if err != nil {
				return err
			}
			if err := s.check(s.root.Profiles.SetMainPhoto(ctx, photo)); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s is now the main photo\n", photo.ID)
			return nil
		}),
	}
}

func deletePhotoCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-photo",
		Usage:     "delete a photo from the signed-in user's gallery",
		ArgsUsage: "<photo-id>",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			if err := loadOwnProfile(ctx, s); err != nil {
				return err
			}
			photo, err := ownPhoto(s, cmd.Args().First())
			if err != nil {
				return err
			}
			if err := s.check(s.root.Profiles.DeletePhoto(ctx, photo)); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "deleted %s\n", photo.ID)
			return nil
		}),
	}
}

func editProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit-profile",
		Usage: "change the signed-in user's display name and bio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "display-name", Usage: "new display name; defaults to the current one"},
			&cli.StringFlag{Name: "bio", Usage: "new bio; defaults to the current one"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			if err := loadOwnProfile(ctx, s); err != nil {
				return err
			}
			current := s.root.Profiles.Snapshot().Profile
			details := apiclient.ProfileDetails{DisplayName: current.DisplayName, Bio: current.Bio}
			if cmd.IsSet("display-name") {
				details.DisplayName = cmd.String("display-name")
			}
			if cmd.IsSet("bio") {
				details.Bio = cmd.String("bio")
			}
			if err := s.check(s.root.Profiles.EditProfile(ctx, details)); err != nil {
				return err
			}
			printProfile(s.out, *s.root.Profiles.Snapshot().Profile, true)
			return nil
		}),
	}
}

// usernameArg returns the first argument, or the signed-in user's name.
func usernameArg(cmd *cli.Command, s *session) (string, error) {
	if name := strings.TrimSpace(cmd.Args().First()); name != "" {
		return name, nil
	}
	user, ok := s.root.Users.User()
	if !ok {
		return "", fmt.Errorf("not signed in; name a user")
	}
	return user.Username, nil
}

func loadOwnProfile(ctx context.Context, s *session) error {
	user, ok := s.root.Users.User()
	if !ok {
		return fmt.Errorf("not signed in")
	}
	return s.check(s.root.Profiles.LoadProfile(ctx, user.Username))
}

func ownPhoto(s *session, id string) (apiclient.Photo, error) {
	for _, p := range s.root.Profiles.Snapshot().Profile.Photos {
		if p.ID == id {
			return p, nil
		}
	}
	return apiclient.Photo{}, fmt.Errorf("photo %s not found in your gallery", id)
}
