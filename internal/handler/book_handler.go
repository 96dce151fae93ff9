package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	errs "booklog/internal/errors"
	"booklog/internal/service"
)

// BookHandler handles the owner-scoped book pages.
type BookHandler struct {
	books service.BookService
}

// NewBookHandler creates a book handler.
func NewBookHandler(books service.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// BookForm carries the add/edit form fields. Rating and read date stay
// strings here; the service parses them leniently.
type BookForm struct {
	ID       string `form:"id"`
	Action   string `form:"action"`
	Title    string `form:"title"`
	Author   string `form:"author"`
	Rating   string `form:"rating"`
	Review   string `form:"review"`
	ReadDate string `form:"read_date"`
	CoverURL string `form:"cover_url"`
}

func (f *BookForm) input() service.BookInput {
	return service.BookInput{
		Title:    f.Title,
		Author:   f.Author,
		Rating:   f.Rating,
		Review:   f.Review,
		ReadDate: f.ReadDate,
		CoverURL: f.CoverURL,
	}
}

// List renders the owner's books, ordered by ?sort= (recent or rating).
func (h *BookHandler) List(c echo.Context) error {
	identity := CurrentIdentity(c)

	sort := c.QueryParam("sort")
	if sort == "" {
		sort = "recent"
	}

	books, err := h.books.List(c.Request().Context(), identity.UserID, sort)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "books.html", echo.Map{
		"Books": books,
		"Sort":  sort,
	})
}

// AddPage renders an empty add-book form.
func (h *BookHandler) AddPage(c echo.Context) error {
	return c.Render(http.StatusOK, "add.html", echo.Map{
		"Form":       BookForm{},
		"CoverError": nil,
	})
}

// AddSubmit handles both buttons of the add form: "fetch" asks the
// cover collaborator and re-renders the form, "save" inserts the book.
// A failed cover lookup never blocks saving; the form comes back with
// an inline note and an empty cover.
func (h *BookHandler) AddSubmit(c echo.Context) error {
	identity := CurrentIdentity(c)

	var form BookForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	switch form.Action {
	case "fetch":
		if strings.TrimSpace(form.Title) == "" {
			return c.Render(http.StatusOK, "add.html", echo.Map{
				"Form":       form,
				"CoverError": "Please enter a title before fetching the cover.",
			})
		}

		coverURL, err := h.books.FetchCover(c.Request().Context(), form.Title)
		if err != nil {
			return c.Render(http.StatusOK, "add.html", echo.Map{
				"Form":       form,
				"CoverError": "Error contacting Open Library. Try again.",
			})
		}
		form.CoverURL = coverURL

		var coverError interface{}
		if coverURL == "" {
			coverError = "No cover found for that title."
		}
		return c.Render(http.StatusOK, "add.html", echo.Map{
			"Form":       form,
			"CoverError": coverError,
		})

	case "save":
		if _, err := h.books.Create(c.Request().Context(), identity.UserID, form.input()); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/books")

	default:
		return c.Redirect(http.StatusSeeOther, "/add")
	}
}

// Delete removes one of the owner's books. A miss (no such book, or not
// theirs) lands back on the list without revealing which case it was.
func (h *BookHandler) Delete(c echo.Context) error {
	identity := CurrentIdentity(c)

	bookID, err := parseID(c.FormValue("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.books.Delete(c.Request().Context(), identity.UserID, bookID); err != nil {
		if errors.Is(err, errs.ErrNotFoundOrForbidden) {
			return c.Redirect(http.StatusSeeOther, "/books")
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/books")
}

// EditRedirect bounces the edit button's POST to the edit page.
func (h *BookHandler) EditRedirect(c echo.Context) error {
	id := c.FormValue("id")
	if _, err := parseID(id); err != nil {
		return c.Redirect(http.StatusSeeOther, "/books")
	}
	return c.Redirect(http.StatusSeeOther, "/edit/"+id)
}

// EditPage renders the edit form for one of the owner's books.
func (h *BookHandler) EditPage(c echo.Context) error {
	identity := CurrentIdentity(c)

	bookID, err := parseID(c.Param("id"))
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/books")
	}

	book, err := h.books.GetForEdit(c.Request().Context(), identity.UserID, bookID)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/books")
	}

	return c.Render(http.StatusOK, "edit.html", echo.Map{"Book": book})
}

// Update applies the edit form to one of the owner's books.
func (h *BookHandler) Update(c echo.Context) error {
	identity := CurrentIdentity(c)

	var form BookForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bookID, err := parseID(form.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.books.Update(c.Request().Context(), identity.UserID, bookID, form.input()); err != nil {
		if errors.Is(err, errs.ErrNotFoundOrForbidden) {
			return c.Redirect(http.StatusSeeOther, "/books")
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/books")
}

func parseID(raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
