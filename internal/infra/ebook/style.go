package ebook

// stylesheet is shared by every chapter.
const stylesheet = `body {
    font-family: Georgia, serif;
    line-height: 1.6;
    margin: 0;
    padding: 1em;
}
h1 {
    font-size: 1.5em;
    text-align: center;
    margin-top: 1em;
    margin-bottom: 0.5em;
    border-bottom: 1px solid #ccc;
    padding-bottom: 0.3em;
}
h2 {
    font-size: 1.3em;
    margin-top: 1em;
}
h3 {
    font-size: 1.1em;
}
p.byline {
    text-align: center;
    color: #555;
    font-size: 0.95em;
    margin-bottom: 1.5em;
}
img {
    max-width: 100%;
}
pre {
    background: #f4f4f4;
    padding: 1em;
    white-space: pre-wrap;
}
table {
    border-collapse: collapse;
}
th, td {
    border: 1px solid #ccc;
    padding: 0.3em 0.6em;
}
`
