package codegen

// runtimeC is the fixed, hand-authored C11 runtime prelude emitted at the
// top of every generated translation unit (spec.md §4.6). It defines the
// tagged-union ErgoVal, reference counting for strings/arrays/objects, and
// the small set of helper functions gen_expr/gen_stmt call into by name.
// Its text never depends on the source program, so identical ergo inputs
// always produce byte-identical C output up to the generated body.
const runtimeC = `/* generated by ergoc — do not edit */
#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <stdint.h>

typedef enum {
    EV_NULL, EV_INT, EV_FLOAT, EV_BOOL, EV_STR, EV_ARR, EV_OBJ, EV_FN
} ErgoTag;

typedef struct ErgoVal ErgoVal;
typedef struct ErgoStr ErgoStr;
typedef struct ErgoArr ErgoArr;
typedef struct ErgoObj ErgoObj;
typedef struct ErgoFn ErgoFn;

struct ErgoStr { int64_t rc; size_t len; char data[]; };
struct ErgoArr { int64_t rc; size_t len; size_t cap; ErgoVal *items; };
struct ErgoObj { int64_t rc; void (*drop)(struct ErgoObj *); };
struct ErgoFn { const char *name; int arity; void *fnptr; };

struct ErgoVal {
    ErgoTag tag;
    union {
        int64_t i;
        double f;
        int b;
        ErgoStr *s;
        ErgoArr *a;
        ErgoObj *p;
        ErgoFn *fn;
    } as;
};

#define EV_NULLV() ((ErgoVal){.tag = EV_NULL})
#define EV_INTV(x) ((ErgoVal){.tag = EV_INT, .as.i = (x)})
#define EV_FLOATV(x) ((ErgoVal){.tag = EV_FLOAT, .as.f = (x)})
#define EV_BOOLV(x) ((ErgoVal){.tag = EV_BOOL, .as.b = (x)})

static ErgoVal ergo_retain_val(ErgoVal v) {
    switch (v.tag) {
    case EV_STR: if (v.as.s) v.as.s->rc++; break;
    case EV_ARR: if (v.as.a) v.as.a->rc++; break;
    case EV_OBJ: if (v.as.p) v.as.p->rc++; break;
    default: break;
    }
    return v;
}

static void ergo_release_val(ErgoVal v);

static void ergo_release_arr(ErgoArr *a) {
    if (!a) return;
    if (--a->rc > 0) return;
    for (size_t i = 0; i < a->len; i++) ergo_release_val(a->items[i]);
    free(a->items);
    free(a);
}

static void ergo_release_val(ErgoVal v) {
    switch (v.tag) {
    case EV_STR:
        if (v.as.s && --v.as.s->rc == 0) free(v.as.s);
        break;
    case EV_ARR:
        ergo_release_arr(v.as.a);
        break;
    case EV_OBJ:
        if (v.as.p && --v.as.p->rc == 0) {
            if (v.as.p->drop) v.as.p->drop(v.as.p);
            free(v.as.p);
        }
        break;
    default:
        break;
    }
}

/* ergo_move transfers ownership out of a slot, leaving it null behind. */
static ErgoVal ergo_move(ErgoVal *slot) {
    ErgoVal v = *slot;
    *slot = EV_NULLV();
    return v;
}

/* ergo_move_into releases the old value in *slot then installs v. */
static void ergo_move_into(ErgoVal *slot, ErgoVal v) {
    ergo_release_val(*slot);
    *slot = v;
}

static ErgoVal ergo_str_new(const char *data, size_t len) {
    ErgoStr *s = malloc(sizeof(ErgoStr) + len + 1);
    s->rc = 1;
    s->len = len;
    memcpy(s->data, data, len);
    s->data[len] = 0;
    return (ErgoVal){.tag = EV_STR, .as.s = s};
}

static ErgoVal stdr_arr_new(void) {
    ErgoArr *a = malloc(sizeof(ErgoArr));
    a->rc = 1;
    a->len = 0;
    a->cap = 4;
    a->items = malloc(sizeof(ErgoVal) * a->cap);
    return (ErgoVal){.tag = EV_ARR, .as.a = a};
}

static void ergo_arr_add(ErgoVal arr, ErgoVal item) {
    ErgoArr *a = arr.as.a;
    if (a->len == a->cap) {
        a->cap *= 2;
        a->items = realloc(a->items, sizeof(ErgoVal) * a->cap);
    }
    a->items[a->len++] = item;
}

static ErgoVal ergo_arr_get(ErgoVal arr, int64_t idx) {
    ErgoArr *a = arr.as.a;
    if (idx < 0 || (size_t)idx >= a->len) {
        fprintf(stderr, "error: array index out of bounds\n");
        exit(1);
    }
    return ergo_retain_val(a->items[idx]);
}

static void ergo_arr_set(ErgoVal arr, int64_t idx, ErgoVal v) {
    ErgoArr *a = arr.as.a;
    if (idx < 0 || (size_t)idx >= a->len) {
        fprintf(stderr, "error: array index out of bounds\n");
        exit(1);
    }
    ergo_move_into(&a->items[idx], v);
}

static ErgoVal stdr_str_at(ErgoVal str, int64_t idx) {
    ErgoStr *s = str.as.s;
    if (idx < 0 || (size_t)idx >= s->len) {
        fprintf(stderr, "error: string index out of bounds\n");
        exit(1);
    }
    return ergo_str_new(s->data + idx, 1);
}

static ErgoVal ergo_obj_new(size_t size, void (*drop)(ErgoObj *)) {
    ErgoObj *o = calloc(1, size);
    o->rc = 1;
    o->drop = drop;
    return (ErgoVal){.tag = EV_OBJ, .as.p = o};
}

static int ergo_as_bool(ErgoVal v) { return v.tag == EV_BOOL && v.as.b; }
static int64_t ergo_as_int(ErgoVal v) { return v.tag == EV_FLOAT ? (int64_t)v.as.f : v.as.i; }
static double ergo_as_float(ErgoVal v) { return v.tag == EV_FLOAT ? v.as.f : (double)v.as.i; }

static ErgoVal ergo_add(ErgoVal a, ErgoVal b) {
    if (a.tag == EV_STR && b.tag == EV_STR) {
        size_t n = a.as.s->len + b.as.s->len;
        char *buf = malloc(n);
        memcpy(buf, a.as.s->data, a.as.s->len);
        memcpy(buf + a.as.s->len, b.as.s->data, b.as.s->len);
        ErgoVal r = ergo_str_new(buf, n);
        free(buf);
        return r;
    }
    if (a.tag == EV_FLOAT || b.tag == EV_FLOAT) return EV_FLOATV(ergo_as_float(a) + ergo_as_float(b));
    return EV_INTV(ergo_as_int(a) + ergo_as_int(b));
}
static ErgoVal ergo_sub(ErgoVal a, ErgoVal b) {
    if (a.tag == EV_FLOAT || b.tag == EV_FLOAT) return EV_FLOATV(ergo_as_float(a) - ergo_as_float(b));
    return EV_INTV(ergo_as_int(a) - ergo_as_int(b));
}
static ErgoVal ergo_mul(ErgoVal a, ErgoVal b) {
    if (a.tag == EV_FLOAT || b.tag == EV_FLOAT) return EV_FLOATV(ergo_as_float(a) * ergo_as_float(b));
    return EV_INTV(ergo_as_int(a) * ergo_as_int(b));
}
static ErgoVal ergo_div(ErgoVal a, ErgoVal b) {
    if (a.tag == EV_FLOAT || b.tag == EV_FLOAT) return EV_FLOATV(ergo_as_float(a) / ergo_as_float(b));
    return EV_INTV(ergo_as_int(a) / ergo_as_int(b));
}
static ErgoVal ergo_mod(ErgoVal a, ErgoVal b) { return EV_INTV(ergo_as_int(a) % ergo_as_int(b)); }

static ErgoVal ergo_eq(ErgoVal a, ErgoVal b) {
    if (a.tag != b.tag) {
        if ((a.tag == EV_INT || a.tag == EV_FLOAT) && (b.tag == EV_INT || b.tag == EV_FLOAT))
            return EV_BOOLV(ergo_as_float(a) == ergo_as_float(b));
        return EV_BOOLV(a.tag == EV_NULL && b.tag == EV_NULL);
    }
    switch (a.tag) {
    case EV_NULL: return EV_BOOLV(1);
    case EV_INT: return EV_BOOLV(a.as.i == b.as.i);
    case EV_FLOAT: return EV_BOOLV(a.as.f == b.as.f);
    case EV_BOOL: return EV_BOOLV(a.as.b == b.as.b);
    case EV_STR: return EV_BOOLV(a.as.s->len == b.as.s->len && memcmp(a.as.s->data, b.as.s->data, a.as.s->len) == 0);
    default: return EV_BOOLV(a.as.p == b.as.p);
    }
}
static ErgoVal ergo_ne(ErgoVal a, ErgoVal b) { return EV_BOOLV(!ergo_as_bool(ergo_eq(a, b))); }
static ErgoVal ergo_lt(ErgoVal a, ErgoVal b) { return EV_BOOLV(ergo_as_float(a) < ergo_as_float(b)); }
static ErgoVal ergo_le(ErgoVal a, ErgoVal b) { return EV_BOOLV(ergo_as_float(a) <= ergo_as_float(b)); }
static ErgoVal ergo_gt(ErgoVal a, ErgoVal b) { return EV_BOOLV(ergo_as_float(a) > ergo_as_float(b)); }
static ErgoVal ergo_ge(ErgoVal a, ErgoVal b) { return EV_BOOLV(ergo_as_float(a) >= ergo_as_float(b)); }
static ErgoVal ergo_neg(ErgoVal a) {
    if (a.tag == EV_FLOAT) return EV_FLOATV(-a.as.f);
    return EV_INTV(-a.as.i);
}

static ErgoVal ergo_call(ErgoVal fn, int argc, ErgoVal *argv) {
    switch (argc) {
    case 0: return ((ErgoVal (*)(void))fn.as.fn->fnptr)();
    case 1: return ((ErgoVal (*)(ErgoVal))fn.as.fn->fnptr)(argv[0]);
    case 2: return ((ErgoVal (*)(ErgoVal, ErgoVal))fn.as.fn->fnptr)(argv[0], argv[1]);
    case 3: return ((ErgoVal (*)(ErgoVal, ErgoVal, ErgoVal))fn.as.fn->fnptr)(argv[0], argv[1], argv[2]);
    default:
        fprintf(stderr, "error: unsupported dynamic call arity\n");
        exit(1);
    }
    return EV_NULLV();
}

static ErgoVal ergo_fn_new(const char *name, int arity, void *fnptr) {
    ErgoFn *f = malloc(sizeof(ErgoFn));
    f->name = name;
    f->arity = arity;
    f->fnptr = fnptr;
    return (ErgoVal){.tag = EV_FN, .as.fn = f};
}

static void ergo_print_val(ErgoVal v) {
    switch (v.tag) {
    case EV_NULL: fputs("null", stdout); break;
    case EV_INT: printf("%lld", (long long)v.as.i); break;
    case EV_FLOAT: printf("%g", v.as.f); break;
    case EV_BOOL: fputs(v.as.b ? "true" : "false", stdout); break;
    case EV_STR: fwrite(v.as.s->data, 1, v.as.s->len, stdout); break;
    default: fputs("<obj>", stdout); break;
    }
}

static ErgoVal __len(ErgoVal v) {
    if (v.tag == EV_STR) return EV_INTV((int64_t)v.as.s->len);
    if (v.tag == EV_ARR) return EV_INTV((int64_t)v.as.a->len);
    fprintf(stderr, "error: len() requires an array or string\n");
    exit(1);
}

/* stdr_str converts any value to its printed string representation. */
static ErgoVal stdr_str(ErgoVal v) {
    if (v.tag == EV_STR) return ergo_retain_val(v);
    char buf[64];
    switch (v.tag) {
    case EV_NULL: return ergo_str_new("null", 4);
    case EV_INT: { int n = snprintf(buf, sizeof(buf), "%lld", (long long)v.as.i); return ergo_str_new(buf, (size_t)n); }
    case EV_FLOAT: { int n = snprintf(buf, sizeof(buf), "%g", v.as.f); return ergo_str_new(buf, (size_t)n); }
    case EV_BOOL: return v.as.b ? ergo_str_new("true", 4) : ergo_str_new("false", 5);
    default: return ergo_str_new("<obj>", 5);
    }
}

/* stdr_to_string renders an array as a bracketed, comma-separated list. */
static ErgoVal stdr_to_string(ErgoVal arr) {
    ErgoArr *a = arr.as.a;
    ErgoVal out = ergo_str_new("[", 1);
    for (size_t i = 0; i < a->len; i++) {
        if (i > 0) { ErgoVal comma = ergo_str_new(", ", 2); ErgoVal nv = ergo_add(out, comma); ergo_release_val(out); ergo_release_val(comma); out = nv; }
        ErgoVal piece = stdr_str(a->items[i]);
        ErgoVal nv = ergo_add(out, piece);
        ergo_release_val(out);
        ergo_release_val(piece);
        out = nv;
    }
    ErgoVal close = ergo_str_new("]", 1);
    ErgoVal nv = ergo_add(out, close);
    ergo_release_val(out);
    ergo_release_val(close);
    return nv;
}

/* stdr_arr_remove deletes the element at idx, shifting later items down,
   and returns the removed value (ownership transfers to the caller). */
static ErgoVal stdr_arr_remove(ErgoVal arr, ErgoVal idxv) {
    ErgoArr *a = arr.as.a;
    int64_t idx = ergo_as_int(idxv);
    if (idx < 0 || (size_t)idx >= a->len) {
        fprintf(stderr, "error: array index out of bounds\n");
        exit(1);
    }
    ErgoVal removed = a->items[idx];
    for (size_t i = (size_t)idx; i + 1 < a->len; i++) a->items[i] = a->items[i + 1];
    a->len--;
    return removed;
}

/* stdr_writef prints fmt, substituting each "{}" placeholder in order with
   the printed form of the next item of args. */
static ErgoVal stdr_writef(ErgoVal fmt, ErgoVal args) {
    ErgoStr *fmtstr = fmt.as.s;
    ErgoArr *a = args.as.a;
    size_t argi = 0;
    for (size_t i = 0; i < fmtstr->len; i++) {
        if (i + 1 < fmtstr->len && fmtstr->data[i] == '{' && fmtstr->data[i + 1] == '}') {
            if (argi < a->len) ergo_print_val(a->items[argi++]);
            i++;
            continue;
        }
        fputc(fmtstr->data[i], stdout);
    }
    return EV_NULLV();
}

static ErgoVal __read_line(void) {
    char *buf = NULL;
    size_t cap = 0;
    ssize_t n = getline(&buf, &cap, stdin);
    if (n < 0) { free(buf); return ergo_str_new("", 0); }
    if (n > 0 && buf[n - 1] == '\n') n--;
    ErgoVal r = ergo_str_new(buf, n);
    free(buf);
    return r;
}

static size_t stdr_find_sub(const char *s, size_t slen, const char *sub, size_t sublen, size_t start) {
    if (sublen == 0) return start;
    if (start > slen) return (size_t)-1;
    for (size_t i = start; i + sublen <= slen; i++) {
        if (memcmp(s + i, sub, sublen) == 0) return i;
    }
    return (size_t)-1;
}

static void stdr_trim_span(const char *s, size_t len, size_t *out_start, size_t *out_len) {
    size_t a = 0;
    while (a < len && (s[a] == ' ' || s[a] == '\t')) a++;
    size_t b = len;
    while (b > a && (s[b - 1] == ' ' || s[b - 1] == '\t')) b--;
    *out_start = a;
    *out_len = b - a;
}

static int64_t stdr_parse_int_slice(const char *s, size_t len) {
    if (len == 0) return 0;
    char *tmp = malloc(len + 1);
    memcpy(tmp, s, len);
    tmp[len] = 0;
    char *end = NULL;
    long long v = strtoll(tmp, &end, 10);
    free(tmp);
    return end == tmp ? 0 : (int64_t)v;
}

static double stdr_parse_float_slice(const char *s, size_t len) {
    if (len == 0) return 0.0;
    char *tmp = malloc(len + 1);
    memcpy(tmp, s, len);
    tmp[len] = 0;
    char *end = NULL;
    double v = strtod(tmp, &end);
    free(tmp);
    return end == tmp ? 0.0 : v;
}

static int stdr_parse_bool_slice(const char *s, size_t len) {
    if (len == 1) return s[0] == '1';
    if (len == 4) {
        return (s[0] == 't' || s[0] == 'T') && (s[1] == 'r' || s[1] == 'R') &&
               (s[2] == 'u' || s[2] == 'U') && (s[3] == 'e' || s[3] == 'E');
    }
    return 0;
}

/* stdr_readf reads one line from stdin and splits it on fmt's literal "{}"
   segments, parsing each captured slice according to the tag of the
   corresponding hint in args (one of EV_INT/EV_FLOAT/EV_BOOL/EV_STR),
   returning a new array of parsed values in argument order. */
static ErgoVal stdr_readf(ErgoVal fmt, ErgoVal args) {
    ErgoVal lineV = __read_line();
    ErgoStr *fs = fmt.as.s;
    ErgoStr *ls = lineV.as.s;
    ErgoArr *a = args.as.a;

    const char *f = fs->data;
    size_t flen = fs->len;
    const char *s = ls->data;
    size_t slen = ls->len;

    size_t segs = 1;
    for (size_t i = 0; i + 1 < flen; i++) {
        if (f[i] == '{' && f[i + 1] == '}') { segs++; i++; }
    }

    const char **seg_ptrs = malloc(sizeof(char *) * segs);
    size_t *seg_lens = malloc(sizeof(size_t) * segs);
    size_t seg_start = 0;
    size_t seg_idx = 0;
    for (size_t i = 0; i + 1 < flen; i++) {
        if (f[i] == '{' && f[i + 1] == '}') {
            seg_ptrs[seg_idx] = f + seg_start;
            seg_lens[seg_idx] = i - seg_start;
            seg_idx++;
            i++;
            seg_start = i + 1;
        }
    }
    seg_ptrs[seg_idx] = f + seg_start;
    seg_lens[seg_idx] = flen - seg_start;

    size_t placeholders = segs - 1;

    size_t spos = 0;
    if (seg_lens[0] > 0) {
        size_t found = stdr_find_sub(s, slen, seg_ptrs[0], seg_lens[0], 0);
        if (found != (size_t)-1) spos = found + seg_lens[0];
    }

    ErgoVal out = stdr_arr_new();

    for (size_t i = 0; i < a->len; i++) {
        size_t cap_start = spos;
        size_t cap_len = 0;
        if (i < placeholders) {
            size_t found = stdr_find_sub(s, slen, seg_ptrs[i + 1], seg_lens[i + 1], spos);
            if (found == (size_t)-1) {
                cap_len = slen - spos;
                spos = slen;
            } else {
                cap_len = found - spos;
                spos = found + seg_lens[i + 1];
            }
        }

        size_t trim_start = 0;
        size_t trim_len = cap_len;
        stdr_trim_span(s + cap_start, cap_len, &trim_start, &trim_len);
        const char *cap = cap_len > 0 ? s + cap_start + trim_start : "";

        ErgoVal hint = a->items[i];
        ErgoVal v;
        switch (hint.tag) {
        case EV_INT: v = EV_INTV(stdr_parse_int_slice(cap, trim_len)); break;
        case EV_FLOAT: v = EV_FLOATV(stdr_parse_float_slice(cap, trim_len)); break;
        case EV_BOOL: v = EV_BOOLV(stdr_parse_bool_slice(cap, trim_len)); break;
        default: v = ergo_str_new(cap, trim_len); break;
        }
        ergo_arr_add(out, v);
    }

    free(seg_ptrs);
    free(seg_lens);
    ergo_release_val(lineV);
    return out;
}
`
