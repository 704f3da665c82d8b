package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/assocworks/member-chat/config"
	"github.com/assocworks/member-chat/globals"
	"github.com/assocworks/member-chat/persistence"
	"github.com/assocworks/member-chat/types"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of member-chat rooms,
// users and message history. It operates directly on the configured
// persistence backend.

var configPath = pflag.StringP("config", "c", "", "path to config file or directory")

func main() {
	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms, users or history",
		Long:  `show prints room, user or message history information.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Show: " + strings.Join(args, " "))
		},
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all available rooms.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			printJSON(rooms)
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Show room",
		Long:  `show room prints detail information about the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				globals.AppLogger.Error("invalid room id", "arg", args[0])
				return
			}
			room := types.Room{Id: id}
			if err := persister.GetRoom(&room); err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			printJSON(room)
		},
	}
	var cmdShowUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Long:  `show users lists all known users.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			users, err := persister.GetUsers()
			if err != nil {
				globals.AppLogger.Error("could not get users", "error", err)
				return
			}
			printJSON(users)
		},
	}
	var cmdShowUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Show user",
		Long:  `show user prints detail information about the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			user := types.User{Id: args[0]}
			if err := persister.GetUser(&user); err != nil {
				globals.AppLogger.Error("could not get user", "error", err)
				return
			}
			printJSON(user)
		},
	}
	var cmdShowHistory = &cobra.Command{
		Use:   "history [room id]",
		Short: "Show message history",
		Long:  `show history prints the most recent messages of the room with the given id, oldest first.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				globals.AppLogger.Error("invalid room id", "arg", args[0])
				return
			}
			limit, _ := cmd.Flags().GetInt("limit")
			messages, err := persister.History(id, limit)
			if err != nil {
				globals.AppLogger.Error("could not get history", "error", err)
				return
			}
			printJSON(messages)
		},
	}
	cmdShowHistory.Flags().Int("limit", 50, "maximum number of messages")

	var cmdCreate = &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Create: " + strings.Join(args, " "))
		},
	}
	var cmdCreateRoom = &cobra.Command{
		Use:   "room [name]",
		Short: "Create room",
		Long:  `create room creates a new room with the given name.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			room := types.Room{Name: args[0], Tags: make(map[string]string)}
			if err := persister.StoreRoom(&room); err != nil {
				globals.AppLogger.Error("could not store room", "error", err)
				return
			}
			printJSON(room)
		},
	}

	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "Delete room or user",
		Long:  `delete removes the user or room with a given user/room id.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Delete: " + strings.Join(args, " "))
		},
	}
	var cmdDeleteRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Delete room",
		Long:  `delete room removes the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				globals.AppLogger.Error("invalid room id", "arg", args[0])
				return
			}
			if err := persister.DeleteRoom(&types.Room{Id: id}); err != nil {
				globals.AppLogger.Error("could not delete room", "error", err)
			}
		},
	}
	var cmdDeleteUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Delete user",
		Long:  `delete user removes the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := persister.DeleteUser(&types.User{Id: args[0]}); err != nil {
				globals.AppLogger.Error("could not delete user", "error", err)
			}
		},
	}

	var cmdSet = &cobra.Command{
		Use:   "set",
		Short: "Update a user",
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Set: " + strings.Join(args, " "))
		},
	}
	var cmdSetUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Update user",
		Long:  `set user updates the nick and/or tags of the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			user := types.User{Id: args[0]}
			if err := persister.GetUser(&user); err != nil {
				globals.AppLogger.Error("could not get user", "error", err)
				return
			}
			if nick, _ := cmd.Flags().GetString("nick"); nick != "" {
				user.Nick = nick
			}
			tags, _ := cmd.Flags().GetStringSlice("tag")
			for _, tag := range tags {
				parts := strings.SplitN(tag, "=", 2)
				if len(parts) != 2 {
					globals.AppLogger.Error("invalid tag, expected key=value", "tag", tag)
					return
				}
				if user.Tags == nil {
					user.Tags = make(map[string]string)
				}
				user.Tags[parts[0]] = parts[1]
			}
			if err := persister.StoreUser(user); err != nil {
				globals.AppLogger.Error("could not store user", "error", err)
				return
			}
			printJSON(user)
		},
	}
	cmdSetUser.Flags().String("nick", "", "new nick")
	cmdSetUser.Flags().StringSlice("tag", nil, "tag to set, key=value (repeatable)")

	var rootCmd = &cobra.Command{Use: "member-chat-admin"}
	rootCmd.AddCommand(cmdShow, cmdCreate, cmdDelete, cmdSet)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowUsers, cmdShowUser, cmdShowHistory)
	cmdCreate.AddCommand(cmdCreateRoom)
	cmdDelete.AddCommand(cmdDeleteRoom, cmdDeleteUser)
	cmdSet.AddCommand(cmdSetUser)
	if err := rootCmd.Execute(); err != nil {
		globals.AppLogger.Error("command failed", "error", err)
	}
}

func printJSON(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		globals.AppLogger.Error("could not marshal output", "error", err)
		return
	}
	fmt.Println(string(raw))
}
