package ez

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"franchise-crm/internal/core/database"
	"franchise-crm/internal/domain"
	resp "franchise-crm/internal/transport/http/response"
	"franchise-crm/pkg/utils"
)

// Hook
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
	AfterGet     func(c *gin.Context, m *T)
}

type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup // 已鉴权分组（能拿 caller）
	Path  string
	New   func() *T

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	IDField    string // 默认 "ID"
	OwnerField string // 默认优先 "OwnerID"，其次 "CreatedBy"/"UserID"
	// OwnerScoped 为 true 时只能看到/修改自己的记录；否则 owner 只在创建时写入
	OwnerScoped bool
	// CanWrite 创建/修改/删除的权限（可选），读取只要求有 profile
	CanWrite func(domain.Capabilities) bool

	IDGen func() string // 默认 utils.NewID

	// 列表排序（列名按模型字段自动转 snake_case），为空则按 ID DESC
	OrderBy string // 例如 "name ASC"
	// SearchColumns ?q= 模糊匹配的列
	SearchColumns []string
}

// 反射 & 工具
func (c *CrudConfig[T]) idFieldCandidates() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID", "Id"}
	}
	return []string{"ID", "Id"}
}

func (c *CrudConfig[T]) ownerFieldCandidates() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "OwnerID", "CreatedBy", "UserID"}
	}
	return []string{"OwnerID", "CreatedBy", "UserID"}
}

func getStringFieldPtr(obj any, candidates []string) (*string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return nil, false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := v.Type()
	for _, cand := range candidates {
		f, ok := t.FieldByName(cand)
		// 未导出字段跳过
		if !ok || f.PkgPath != "" || len(f.Index) != 1 {
			continue
		}
		fv := v.Field(f.Index[0])
		if fv.Kind() == reflect.String && fv.CanSet() {
			return fv.Addr().Interface().(*string), true
		}
	}
	return nil, false
}

func readStringField(obj any, candidates []string) (string, bool) {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return "", false
	}
	return *p, true
}

func writeStringField(obj any, candidates []string, val string) bool {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return false
	}
	*p = val
	return true
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func toSnake(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func storeErr(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return domain.Conflict("record already exists")
	}
	return domain.Upstream(op, err)
}

// Crud 注册（无需模型实现任何接口）；表结构由 database.Migrate 负责
func Crud[T any](cfg CrudConfig[T]) {
	// 默认放开所有操作
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}

	idFieldNames := cfg.idFieldCandidates()
	ownerFieldNames := cfg.ownerFieldCandidates()

	reader := func(c *gin.Context) (domain.Caller, bool) {
		caller, err := Authorize(c, false, nil, "")
		if err != nil {
			Fail(c, err)
			return caller, false
		}
		return caller, true
	}
	writer := func(c *gin.Context) (domain.Caller, bool) {
		caller, err := Authorize(c, false, cfg.CanWrite, "")
		if err != nil {
			Fail(c, err)
			return caller, false
		}
		return caller, true
	}
	// scoped 按 id（以及 owner）定位一行
	scoped := func(id, uid string) *T {
		f := cfg.New()
		_ = writeStringField(f, idFieldNames, id)
		if cfg.OwnerScoped {
			_ = writeStringField(f, ownerFieldNames, uid)
		}
		return f
	}

	// Create
	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, func(c *gin.Context) {
			caller, ok := writer(c)
			if !ok {
				return
			}
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				Fail(c, BadRequest(err.Error()))
				return
			}
			// 自动生成 ID（总是由服务端生成）
			if !writeStringField(m, idFieldNames, cfg.IDGen()) {
				Fail(c, Internal("id field not found", nil))
				return
			}
			// 写 Owner
			if !writeStringField(m, ownerFieldNames, caller.UserID) {
				Fail(c, Internal("owner field not found", nil))
				return
			}

			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c).Create(m).Error; err != nil {
				Fail(c, storeErr("create", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// List
	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, func(c *gin.Context) {
			caller, ok := reader(c)
			if !ok {
				return
			}
			page := atoiDefault(c.Query("page"), 1)
			size := atoiDefault(c.Query("size"), 20)
			if size <= 0 || size > 100 {
				size = 20
			}
			offset := (page - 1) * size

			q := cfg.DB.WithContext(c).Model(cfg.New())
			if cfg.OwnerScoped {
				// 用结构体 Where 自动映射列名
				ownerFilter := cfg.New()
				_ = writeStringField(ownerFilter, ownerFieldNames, caller.UserID)
				q = q.Where(ownerFilter)
			}
			if s := strings.TrimSpace(c.Query("q")); s != "" && len(cfg.SearchColumns) > 0 {
				like := "%" + strings.ToLower(s) + "%"
				conds := make([]string, 0, len(cfg.SearchColumns))
				args := make([]any, 0, len(cfg.SearchColumns))
				for _, col := range cfg.SearchColumns {
					conds = append(conds, "LOWER("+col+") LIKE ?")
					args = append(args, like)
				}
				q = q.Where(strings.Join(conds, " OR "), args...)
			}
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}

			var total int64
			if err := q.Count(&total).Error; err != nil {
				Fail(c, storeErr("count", err))
				return
			}

			items := []T{}
			// 动态排序：优先按配置 OrderBy，否则按 ID DESC
			if cfg.OrderBy != "" {
				q = q.Order(cfg.OrderBy)
			} else {
				idCol := toSnake(idFieldNames[0])
				q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: idCol}, Desc: true})
			}
			if err := q.Limit(size).Offset(offset).Find(&items).Error; err != nil {
				Fail(c, storeErr("list", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{
				"list": items, "total": total, "page": page, "size": size,
			}))
		})
	}

	// Get
	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
			caller, ok := reader(c)
			if !ok {
				return
			}
			m := cfg.New()
			if err := cfg.DB.WithContext(c).Where(scoped(c.Param("id"), caller.UserID)).First(m).Error; err != nil {
				Fail(c, NotFound("not found"))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// Update
	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			caller, ok := writer(c)
			if !ok {
				return
			}
			id := c.Param("id")

			// 先确认存在（及归属）
			filter := scoped(id, caller.UserID)
			existing := cfg.New()
			if err := cfg.DB.WithContext(c).Where(filter).First(existing).Error; err != nil {
				Fail(c, NotFound("not found"))
				return
			}

			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				Fail(c, BadRequest(err.Error()))
				return
			}
			// 强制保持 ID/Owner
			_ = writeStringField(in, idFieldNames, id)
			if owner, ok := readStringField(existing, ownerFieldNames); ok {
				_ = writeStringField(in, ownerFieldNames, owner)
			}

			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c).Model(cfg.New()).Where(filter).Updates(in).Error; err != nil {
				Fail(c, storeErr("update", err))
				return
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}

	// Delete
	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			caller, ok := writer(c)
			if !ok {
				return
			}
			id := c.Param("id")
			res := cfg.DB.WithContext(c).Where(scoped(id, caller.UserID)).Delete(cfg.New())
			if res.Error != nil {
				Fail(c, storeErr("delete", res.Error))
				return
			}
			if res.RowsAffected == 0 {
				Fail(c, NotFound("not found"))
				return
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}
}
