package entrypoint

import (
	"context"

	"github.com/japaniel/readinglist/pkg/logging"
)

// Context menu item ids.
const (
	MenuSavePage = "save-page"
	MenuSaveLink = "save-link"
)

// MenuClick is what the host passes when a context menu item is chosen.
type MenuClick struct {
	MenuItemID    string
	SelectionText string
	LinkURL       string
}

// ContextMenu handles context menu clicks.
type ContextMenu struct {
	Service Adder
	Tabs    TabSource
	Logger  *logging.Logger
}

// Handle saves the page or the link named by click. Unknown items are ignored.
func (m *ContextMenu) Handle(ctx context.Context, click MenuClick) (string, error) {
	var (
		url string
		err error
	)
	switch click.MenuItemID {
	case MenuSavePage:
		tab, terr := m.Tabs.ActiveTab(ctx)
		if terr != nil {
			err = terr
			break
		}
		url, err = m.Service.AddCurrentPage(ctx, tab)
	case MenuSaveLink:
		url, err = m.Service.AddLink(ctx, click.LinkURL, click.SelectionText)
	default:
		m.Logger.Debugf("ignoring menu item %q", click.MenuItemID)
		return "", nil
	}
	if err != nil {
		m.Logger.Errorf("Failed to add to reading list: %v", err)
		return "", err
	}
	return url, nil
}
