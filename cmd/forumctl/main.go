// forumctl is a terminal client for the forum API.
//
//	forumctl [-signup] [-keep] feed
//	forumctl show <post id>
//	forumctl like <post id>
//	forumctl post [-image file] <text>
//	forumctl comments <post id>
//	forumctl comment <post id> <text>
//	forumctl uncomment <post id> <comment id>
//	forumctl share <post id>
//	forumctl whois <user id>
//	forumctl profile -username name [-bio text] [-avatar file]
//
// FORUM_TOKEN resumes a session kept open by an earlier -keep run; otherwise
// FORUM_EMAIL and FORUM_PASSWORD are used to sign in.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"monoforum/internal/client"
	"monoforum/internal/config"
	"monoforum/internal/feed"
	"monoforum/internal/logger"
	"monoforum/internal/models"
	"monoforum/internal/session"
)

func main() {
	os.Exit(realMain(os.Args[1:], config.LoadClientConfig(), os.Stderr))
}

// realMain returns the exit code so that deferred sign out runs on every path.
func realMain(args []string, cfg *config.Client, stderr io.Writer) int {
	fs := flag.NewFlagSet("forumctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var signup, keep bool
	fs.BoolVar(&signup, "signup", false, "create the account before signing in")
	fs.BoolVar(&keep, "keep", false, "leave the session open and print its token")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	api := client.New(cfg.APIURL, log)
	sess := session.NewManager(api, log)

	if err := openSession(ctx, cfg, api, sess, signup); err != nil {
		fmt.Fprintln(stderr, "не удалось войти:", err)
		return 1
	}
	defer func() {
		if keep {
			fmt.Fprintf(stderr, "FORUM_TOKEN=%s\n", api.Token())
			return
		}
		if err := sess.SignOut(context.Background()); err != nil {
			log.WithError(err).Warn("выход не подтвержден сервером")
		}
	}()

	if err := run(ctx, log, api, sess, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(stderr, "ошибка:", err)
		return 1
	}

	return 0
}

// openSession resumes the saved token when there is one and falls back to
// the configured credentials.
func openSession(ctx context.Context, cfg *config.Client, api *client.Client, sess *session.Manager, signup bool) error {
	if cfg.Token != "" && !signup {
		api.SetToken(cfg.Token)
		if err := sess.Restore(ctx); err != nil {
			return err
		}
		if sess.State() != session.Unauthenticated {
			return nil
		}
		api.SetToken("")
	}

	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("FORUM_EMAIL и FORUM_PASSWORD должны быть заданы")
	}

	if signup {
		return sess.SignUp(ctx, cfg.Email, cfg.Password)
	}
	return sess.SignIn(ctx, cfg.Email, cfg.Password)
}

func run(ctx context.Context, log *logrus.Logger, api *client.Client, sess *session.Manager, cmd string, args []string) error {
	if cmd == "profile" {
		return runProfile(ctx, sess, args)
	}

	if sess.State() != session.AuthenticatedWithProfile {
		return fmt.Errorf("сначала заполните профиль: forumctl profile -username <name>")
	}

	state := feed.New(api, log)
	defer state.Close()

	switch cmd {
	case "feed":
		if err := state.Load(ctx); err != nil {
			return err
		}
		printFeed(state)

	case "show":
		if len(args) != 1 {
			return fmt.Errorf("использование: show <post id>")
		}
		post, err := api.GetPost(ctx, args[0])
		if err != nil {
			return err
		}
		printPost(*post, false, time.Now())

	case "whois":
		if len(args) != 1 {
			return fmt.Errorf("использование: whois <user id>")
		}
		profile, err := api.GetProfileByID(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("@%s\n%s\n%s\n", profile.Username, profile.Bio, profile.AvatarURL)

	case "like":
		if len(args) != 1 {
			return fmt.Errorf("использование: like <post id>")
		}
		if err := state.Load(ctx); err != nil {
			return err
		}
		liked, err := state.ToggleLike(ctx, args[0])
		if err != nil {
			return err
		}
		post, _ := state.Post(args[0])
		fmt.Printf("liked=%t likes=%d\n", liked, post.Likes)

	case "post":
		fs := flag.NewFlagSet("post", flag.ExitOnError)
		imagePath := fs.String("image", "", "image file to attach")
		fs.Parse(args)

		image, err := readUpload(*imagePath)
		if err != nil {
			return err
		}
		if err := state.CreatePost(ctx, strings.Join(fs.Args(), " "), image); err != nil {
			return err
		}
		printFeed(state)

	case "comments":
		if len(args) != 1 {
			return fmt.Errorf("использование: comments <post id>")
		}
		if err := state.Load(ctx); err != nil {
			return err
		}
		if err := state.ExpandComments(ctx, args[0]); err != nil {
			return err
		}
		printComments(state, args[0])

	case "comment":
		if len(args) < 2 {
			return fmt.Errorf("использование: comment <post id> <text>")
		}
		if err := state.Load(ctx); err != nil {
			return err
		}
		if err := state.AddComment(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		printComments(state, args[0])

	case "uncomment":
		if len(args) != 2 {
			return fmt.Errorf("использование: uncomment <post id> <comment id>")
		}
		if err := state.Load(ctx); err != nil {
			return err
		}
		if err := state.DeleteComment(ctx, args[0], args[1]); err != nil {
			return err
		}
		printComments(state, args[0])

	case "share":
		if len(args) != 1 {
			return fmt.Errorf("использование: share <post id>")
		}
		links, err := api.Share(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(links.URL)
		fmt.Println("twitter: ", links.Twitter)
		fmt.Println("facebook:", links.Facebook)
		fmt.Println("linkedin:", links.LinkedIn)

	default:
		return fmt.Errorf("неизвестная команда %q", cmd)
	}

	return nil
}

func runProfile(ctx context.Context, sess *session.Manager, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	username := fs.String("username", "", "username")
	bio := fs.String("bio", "", "bio")
	avatarPath := fs.String("avatar", "", "avatar image file")
	fs.Parse(args)

	avatar, err := readUpload(*avatarPath)
	if err != nil {
		return err
	}

	var profile *models.Profile
	if sess.State() == session.AuthenticatedWithProfile {
		profile, err = sess.EditProfile(ctx, *username, *bio, avatar)
	} else {
		profile, err = sess.CompleteProfile(ctx, *username, *bio, avatar)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s\n%s\n%s\n", profile.Username, profile.Bio, profile.AvatarURL)
	return nil
}

func readUpload(path string) (*models.Upload, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл: %w", err)
	}

	return &models.Upload{FileName: filepath.Base(path), Data: data}, nil
}

func printFeed(state *feed.State) {
	now := time.Now()
	for _, p := range state.Posts() {
		printPost(p, state.IsLiked(p.PostID), now)
	}
}

func printPost(p models.Post, liked bool, now time.Time) {
	heart := " "
	if liked {
		heart = "♥"
	}
	fmt.Printf("%s  @%s · %s\n", p.PostID, p.Username, feed.TimeAgo(p.CreatedAt, now))
	if p.Content != "" {
		fmt.Printf("    %s\n", p.Content)
	}
	if p.ImageURL != nil {
		fmt.Printf("    [image] %s\n", *p.ImageURL)
	}
	fmt.Printf("    %s %d likes · %d comments\n\n", heart, p.Likes, p.Comments)
}

func printComments(state *feed.State, postID string) {
	comments, _ := state.Comments(postID)
	now := time.Now()
	for _, c := range comments {
		fmt.Printf("%s  @%s · %s\n", c.CommentID, c.Username, feed.TimeAgo(c.CreatedAt, now))
		fmt.Printf("    %s\n", c.Content)
	}
}
