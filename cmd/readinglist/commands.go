package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/readinglist/pkg/config"
	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/entrypoint"
	"github.com/japaniel/readinglist/pkg/export"
	"github.com/japaniel/readinglist/pkg/ingest"
	"github.com/japaniel/readinglist/pkg/panel"
)

func newRootCmd() *cobra.Command {
	return newRootCmdWith(newApp())
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "readinglist",
		Short:         "Save pages and links to a reading list and work through it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.bindFlags(root)

	root.AddCommand(
		newShortcutCmd(a),
		newMenuCmd(a),
		newSaveCmd(a),
		newDownloadCmd(a),
		newListCmd(a),
		newMarkCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newPanelCmd(a),
		newConfigCmd(a),
	)
	return root
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, component string, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if err := a.open(ctx, component); err != nil {
		return err
	}
	defer a.close()
	return fn(ctx)
}

// tabFlags describe the page an entry point treats as the active tab.
type tabFlags struct {
	url      string
	title    string
	pageFile string
}

func (t *tabFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.url, "url", "", "URL of the active page")
	cmd.Flags().StringVar(&t.title, "title", "", "Title of the active page (defaults to the URL)")
	cmd.Flags().StringVar(&t.pageFile, "page-file", "", "Saved HTML of the active page; its title is used when --title is empty")
}

func (t *tabFlags) source() entrypoint.TabSource {
	if t.pageFile != "" && t.title == "" {
		return entrypoint.PageFile{Path: t.pageFile, URL: t.url}
	}
	return entrypoint.StaticTab{Title: t.title, URL: t.url}
}

func newShortcutCmd(a *app) *cobra.Command {
	var tab tabFlags
	cmd := &cobra.Command{
		Use:   "shortcut [command]",
		Short: "Run a keyboard command (default add_to_reading_list)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := entrypoint.CommandAddToReadingList
			if len(args) == 1 {
				command = args[0]
			}
			return a.withStore(cmd, "shortcut", func(ctx context.Context) error {
				s := &entrypoint.Shortcuts{
					Service: a.svc,
					Tabs:    tab.source(),
					Toast:   entrypoint.TerminalToast{Out: cmd.ErrOrStderr()},
					Logger:  a.log.With("shortcut"),
				}
				url, err := s.Handle(ctx, command)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Not saved:", err)
					return nil
				}
				if url != "" {
					fmt.Fprintln(cmd.OutOrStdout(), url)
				}
				return nil
			})
		},
	}
	tab.bind(cmd)
	return cmd
}

func newMenuCmd(a *app) *cobra.Command {
	var (
		tab       tabFlags
		link      string
		selection string
	)
	cmd := &cobra.Command{
		Use:       "menu <save-page|save-link>",
		Short:     "Run a context menu item",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{entrypoint.MenuSavePage, entrypoint.MenuSaveLink},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, "menu", func(ctx context.Context) error {
				m := &entrypoint.ContextMenu{Service: a.svc, Tabs: tab.source(), Logger: a.log.With("menu")}
				url, err := m.Handle(ctx, entrypoint.MenuClick{
					MenuItemID:    args[0],
					SelectionText: selection,
					LinkURL:       link,
				})
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Not saved:", err)
					return nil
				}
				if url != "" {
					fmt.Fprintln(cmd.OutOrStdout(), url)
				}
				return nil
			})
		},
	}
	tab.bind(cmd)
	cmd.Flags().StringVar(&link, "link", "", "Link URL for save-link")
	cmd.Flags().StringVar(&selection, "selection", "", "Selected or anchor text for save-link")
	return cmd
}

func (a *app) popup(tabs entrypoint.TabSource) *entrypoint.Popup {
	return &entrypoint.Popup{
		Service:    a.svc,
		Tabs:       tabs,
		Downloader: export.DirDownloader{Dir: a.cfg.ExportDir},
		Logger:     a.log.With("popup"),
		Now:        a.now,
	}
}

func newSaveCmd(a *app) *cobra.Command {
	var tab tabFlags
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the active page (popup quick action)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, "popup", func(ctx context.Context) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.popup(tab.source()).Save(ctx))
				return nil
			})
		},
	}
	tab.bind(cmd)
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Export the reading list as JSON into the export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, "popup", func(ctx context.Context) error {
				p := a.popup(entrypoint.StaticTab{})
				status := p.Download(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), status)
				if p.LastExport != "" {
					fmt.Fprintln(cmd.OutOrStdout(), p.LastExport)
				}
				return nil
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		query  string
		unread bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the reading list, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, "list", func(ctx context.Context) error {
				l := panel.NewList(a.svc, a.log.With("list"))
				if err := l.Render(ctx); err != nil {
					return fmt.Errorf("%s: %w", panel.LoadError, err)
				}
				l.Filter(query)

				var rows []*panel.Row
				for _, r := range l.Visible() {
					if unread && r.Read {
						continue
					}
					rows = append(rows, r)
				}

				out := cmd.OutOrStdout()
				if asJSON {
					entries := make([]db.Entry, 0, len(rows))
					for _, r := range rows {
						entries = append(entries, r.Entry)
					}
					data, err := export.Marshal(entries)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(data))
					return nil
				}
				if l.Empty() {
					fmt.Fprintln(out, panel.Placeholder)
					return nil
				}
				now := a.now()
				for _, r := range rows {
					mark := "[ ]"
					if r.Read {
						mark = "[x]"
					}
					fmt.Fprintf(out, "%s %s\n    %s\n    %s\n", mark, r.Entry.Title, r.Entry.URL, panel.Meta(r, now))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print in the export format")
	cmd.Flags().StringVarP(&query, "filter", "f", "", "Only show entries whose title or domain contains this text")
	cmd.Flags().BoolVar(&unread, "unread", false, "Only show unread entries")
	return cmd
}

func newMarkCmd(a *app) *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "mark <url>",
		Short: "Mark an entry read (or unread with --unread)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			return a.withStore(cmd, "mark", func(ctx context.Context) error {
				entries, err := a.svc.QueryAll(ctx)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if e.URL != url {
						continue
					}
					if e.HasBeenRead == !unread {
						fmt.Fprintln(cmd.OutOrStdout(), "Already marked.")
						return nil
					}
					if err := a.svc.SetReadStatus(ctx, e, !unread); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Updated.")
					return nil
				}
				return fmt.Errorf("%s: %w", url, db.ErrNotFound)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Mark as unread instead")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Remove an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, "delete", func(ctx context.Context) error {
				if err := a.svc.Delete(ctx, strings.TrimSpace(args[0])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var (
		format  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add every link of a JSON export, bookmark HTML file or RSS/Atom feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := ingest.ParseFile(args[0], ingest.Format(format))
			if err != nil {
				return err
			}
			return a.withStore(cmd, "import", func(ctx context.Context) error {
				im := ingest.NewImporter(a.svc.WithoutNotifications(), a.notifier)
				im.Logger = a.log.With("import")
				if workers > 0 {
					im.Workers = workers
				}
				res, err := im.Import(ctx, links)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d links (%d duplicates, %d rejected, %d failed)\n",
					res.Added, len(links), res.Duplicates, res.Rejected, res.Failed)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json, html or feed (default: from the file extension)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent store calls")
	return cmd
}

func newPanelCmd(a *app) *cobra.Command {
	var tab tabFlags
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Open the interactive reading list panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, panelComponent, func(ctx context.Context) error {
				updates, unsubscribe := a.hub.Subscribe()
				defer unsubscribe()

				// other processes announce changes through the signal file
				if events, err := a.signal.Watch(ctx); err != nil {
					a.log.Warnf("Live refresh disabled: %v", err)
				} else {
					go func() {
						for range events {
							_ = a.hub.Notify(ctx)
						}
					}()
				}

				return panel.Run(ctx, panel.Options{
					Service:    a.svc.WithoutNotifications(),
					Tabs:       tab.source(),
					Downloader: export.DirDownloader{Dir: a.cfg.ExportDir},
					Updates:    updates,
					Logger:     a.log.With(panelComponent),
					Now:        a.now,
				})
			})
		},
	}
	tab.bind(cmd)
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (or write it with --write)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			if write {
				path := a.configPath
				if path == "" {
					path = config.DefaultPath()
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
				if err := config.Save(a.cfg, path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Write the effective configuration to the config file")
	return cmd
}
